package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
)

// User 账号 + 资料 + 聚合统计。
// Rating / TotalRatings / TotalCompletedSwaps 只允许 Aggregator 写入。
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	FirstName    string `gorm:"size:30" json:"firstName"`
	LastName     string `gorm:"size:30" json:"lastName"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`

	Bio          string `gorm:"size:500" json:"bio"`
	Location     string `gorm:"size:100" json:"location"`
	AvatarKey    string `gorm:"size:255" json:"avatarKey,omitempty"`
	Role         string `gorm:"size:16;not null;default:user" json:"role"`
	Availability string `gorm:"size:16;not null;default:available" json:"availability"`
	IsPublic     bool   `gorm:"not null;default:true" json:"isPublic"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`

	Rating              float64 `gorm:"not null;default:0" json:"rating"`
	TotalRatings        int     `gorm:"not null;default:0" json:"totalRatings"`
	TotalCompletedSwaps int     `gorm:"not null;default:0" json:"totalCompletedSwaps"`

	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastActiveAt *time.Time `json:"lastActiveAt,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserSummary 嵌在 swap / rating 等输出里的精简用户信息
type UserSummary struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, Name: u.FullName(), Rating: u.Rating}
}

func ValidAvailability(s string) bool {
	return s == AvailabilityAvailable || s == AvailabilityBusy
}
