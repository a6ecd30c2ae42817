package domain

import "time"

type NotificationType string

const (
	NotifySwapRequest    NotificationType = "swap_request"
	NotifySwapAccepted   NotificationType = "swap_accepted"
	NotifySwapRejected   NotificationType = "swap_rejected"
	NotifySwapCompleted  NotificationType = "swap_completed"
	NotifySwapCancelled  NotificationType = "swap_cancelled"
	NotifyRatingReceived NotificationType = "rating_received"
	NotifyBadgeEarned    NotificationType = "badge_earned"
	NotifySystem         NotificationType = "system"
)

var NotificationTypes = []NotificationType{
	NotifySwapRequest, NotifySwapAccepted, NotifySwapRejected, NotifySwapCompleted,
	NotifySwapCancelled, NotifyRatingReceived, NotifyBadgeEarned, NotifySystem,
}

func (t NotificationType) Valid() bool {
	for _, x := range NotificationTypes {
		if x == t {
			return true
		}
	}
	return false
}

// related_type 取值
const (
	RelatedSwapRequest = "swap_request"
	RelatedRating      = "rating"
	RelatedBadge       = "badge"
)

const (
	MaxNotificationTitleLen   = 200
	MaxNotificationMessageLen = 500
)

// Notification 只追加；唯一允许的修改是已读标记
type Notification struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	RecipientID string           `gorm:"size:36;not null;index:idx_notif_recipient_created,priority:1;index:idx_notif_recipient_read,priority:1" json:"recipientId"`
	SenderID    *string          `gorm:"size:36" json:"senderId,omitempty"`
	Type        NotificationType `gorm:"size:20;not null" json:"type"`
	Title       string           `gorm:"size:200;not null" json:"title"`
	Message     string           `gorm:"size:500;not null" json:"message"`
	RelatedType string           `gorm:"size:50" json:"relatedType,omitempty"`
	RelatedID   string           `gorm:"size:36" json:"relatedId,omitempty"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notif_recipient_read,priority:2" json:"isRead"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `gorm:"index:idx_notif_recipient_created,priority:2" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationInput Emit 的入参
type NotificationInput struct {
	RecipientID string
	SenderID    string
	Type        NotificationType
	Title       string
	Message     string
	RelatedType string
	RelatedID   string
}
