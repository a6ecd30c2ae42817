package domain

import "time"

const (
	MinScore       = 1
	MaxScore       = 5
	MaxFeedbackLen = 500
)

// Rating 每个 (swap_request, rater) 最多一条
type Rating struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	SwapRequestID   string    `gorm:"size:36;not null;uniqueIndex:idx_rating_swap_rater" json:"swapRequestId"`
	RaterID         string    `gorm:"size:36;not null;uniqueIndex:idx_rating_swap_rater" json:"raterId"`
	RatedUserID     string    `gorm:"size:36;not null;index" json:"ratedUserId"`
	Score           int       `gorm:"not null" json:"score"`
	Feedback        string    `gorm:"size:500" json:"feedback,omitempty"`
	TeachingQuality *int      `json:"teachingQuality,omitempty"`
	Communication   *int      `json:"communication,omitempty"`
	Reliability     *int      `json:"reliability,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"createdAt"`

	Rater *User `gorm:"foreignKey:RaterID" json:"-"`
}

func (Rating) TableName() string { return "ratings" }

func ValidScore(s int) bool { return s >= MinScore && s <= MaxScore }
