package domain

import "time"

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapAccepted  SwapStatus = "accepted"
	SwapRejected  SwapStatus = "rejected"
	SwapCompleted SwapStatus = "completed"
	SwapCancelled SwapStatus = "cancelled"
)

var SwapStatuses = []SwapStatus{SwapPending, SwapAccepted, SwapRejected, SwapCompleted, SwapCancelled}

func (s SwapStatus) Valid() bool {
	for _, x := range SwapStatuses {
		if x == s {
			return true
		}
	}
	return false
}

// Terminal 终态之后记录不可再变
func (s SwapStatus) Terminal() bool {
	return s == SwapRejected || s == SwapCompleted || s == SwapCancelled
}

const (
	FormatOnline   = "online"
	FormatInPerson = "in_person"
	FormatFlexible = "flexible"
)

func ValidFormat(f string) bool {
	return f == FormatOnline || f == FormatInPerson || f == FormatFlexible
}

const MaxSwapMessageLen = 500

type SwapRequest struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	FromUserID       string     `gorm:"size:36;not null;index" json:"fromUserId"`
	ToUserID         string     `gorm:"size:36;not null;index" json:"toUserId"`
	OfferedSkillID   string     `gorm:"size:36;not null" json:"offeredSkillId"`
	WantedSkillID    string     `gorm:"size:36;not null" json:"wantedSkillId"`
	Message          string     `gorm:"size:500" json:"message"`
	Status           SwapStatus `gorm:"size:10;not null;default:pending;index" json:"status"`
	ProposedDuration *int       `json:"proposedDuration,omitempty"`
	PreferredFormat  string     `gorm:"size:16;not null;default:flexible" json:"preferredFormat"`
	CreatedAt        time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`

	FromUser     *User  `gorm:"foreignKey:FromUserID" json:"-"`
	ToUser       *User  `gorm:"foreignKey:ToUserID" json:"-"`
	OfferedSkill *Skill `gorm:"foreignKey:OfferedSkillID" json:"-"`
	WantedSkill  *Skill `gorm:"foreignKey:WantedSkillID" json:"-"`
}

func (SwapRequest) TableName() string { return "swap_requests" }

func (r *SwapRequest) IsParticipant(uid string) bool {
	return uid != "" && (uid == r.FromUserID || uid == r.ToUserID)
}

// Counterpart 返回另一方；非参与者返回空串
func (r *SwapRequest) Counterpart(uid string) string {
	switch uid {
	case r.FromUserID:
		return r.ToUserID
	case r.ToUserID:
		return r.FromUserID
	}
	return ""
}

type actor int

const (
	actorRequester actor = iota + 1 // from_user
	actorRecipient                  // to_user
	actorEither
)

// 迁移表：当前状态 -> 目标状态 -> 允许的操作人
var swapTransitions = map[SwapStatus]map[SwapStatus]actor{
	SwapPending: {
		SwapAccepted:  actorRecipient,
		SwapRejected:  actorRecipient,
		SwapCancelled: actorRequester,
	},
	SwapAccepted: {
		SwapCompleted: actorEither,
		SwapCancelled: actorEither,
	},
}

// CanTransition 只看迁移表，不看操作人
func CanTransition(from, to SwapStatus) bool {
	_, ok := swapTransitions[from][to]
	return ok
}

// CheckTransition 校验 actorID 能否把 r 从当前状态迁到 to
func CheckTransition(r *SwapRequest, actorID string, to SwapStatus) error {
	if !to.Valid() {
		return Errorf(KindValidation, "unknown status %q", to)
	}
	if !r.IsParticipant(actorID) {
		return Errorf(KindForbidden, "only participants can change this swap request")
	}
	allowed, ok := swapTransitions[r.Status][to]
	if !ok {
		return &TransitionError{From: r.Status, To: to}
	}
	switch allowed {
	case actorRecipient:
		if actorID != r.ToUserID {
			return Errorf(KindForbidden, "only the recipient can mark this request %s", to)
		}
	case actorRequester:
		if actorID != r.FromUserID {
			return Errorf(KindForbidden, "only the requester can mark this request %s", to)
		}
	}
	return nil
}
