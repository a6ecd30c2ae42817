package domain

import "time"

type Badge struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"size:300" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Criteria    string    `gorm:"size:300" json:"criteria"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Badge) TableName() string { return "badges" }

// UserBadge (user, badge) 唯一，首次达标时创建
type UserBadge struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	UserID   string    `gorm:"size:36;not null;uniqueIndex:idx_user_badge" json:"userId"`
	BadgeID  string    `gorm:"size:36;not null;uniqueIndex:idx_user_badge" json:"badgeId"`
	EarnedAt time.Time `json:"earnedAt"`

	Badge *Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

func (UserBadge) TableName() string { return "user_badges" }

var (
	BadgeNewMember = Badge{
		Name:        "New Member",
		Description: "Welcome to the skill swap community!",
		Icon:        "🆕",
		Criteria:    "Registered an account",
	}
	BadgePerfectRating = Badge{
		Name:        "Perfect Rating",
		Description: "Received a perfect 5-star rating",
		Icon:        "⭐",
		Criteria:    "Average rating of 5.0 with at least one rating",
	}
	BadgeFrequentSwapper = Badge{
		Name:        "Frequent Swapper",
		Description: "Completed 5 or more skill swaps",
		Icon:        "🔄",
		Criteria:    "At least 5 completed swaps",
	}
	BadgeTopRated = Badge{
		Name:        "Top Rated",
		Description: "Maintained a 4.5+ rating across 5+ reviews",
		Icon:        "🏆",
		Criteria:    "Average rating of 4.5 or more with at least 5 ratings",
	}
)

// BadgeRule 统计达标即授予
type BadgeRule struct {
	Badge     Badge
	Qualifies func(u *User) bool
}

var BadgeRules = []BadgeRule{
	{Badge: BadgePerfectRating, Qualifies: func(u *User) bool {
		return u.TotalRatings >= 1 && u.Rating >= 5.0
	}},
	{Badge: BadgeFrequentSwapper, Qualifies: func(u *User) bool {
		return u.TotalCompletedSwaps >= 5
	}},
	{Badge: BadgeTopRated, Qualifies: func(u *User) bool {
		return u.TotalRatings >= 5 && u.Rating >= 4.5
	}},
}

// BadgeCatalog 全部内置徽章定义（seed 用）
func BadgeCatalog() []Badge {
	out := []Badge{BadgeNewMember}
	for _, r := range BadgeRules {
		out = append(out, r.Badge)
	}
	return out
}
