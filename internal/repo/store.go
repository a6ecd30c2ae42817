package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

// Store 聚合所有仓储；Transaction 内拿到的是绑定同一个 tx 的 Store
type Store struct {
	db *gorm.DB

	Users         *UserRepo
	Skills        *SkillRepo
	UserSkills    *UserSkillRepo
	Swaps         *SwapRepo
	Ratings       *RatingRepo
	Badges        *BadgeRepo
	Notifications *NotificationRepo
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Skills:        NewSkillRepo(db),
		UserSkills:    NewUserSkillRepo(db),
		Swaps:         NewSwapRepo(db),
		Ratings:       NewRatingRepo(db),
		Badges:        NewBadgeRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction fn 返回 error 则整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

// IsDupKey 唯一冲突；TranslateError 打开时走 gorm.ErrDuplicatedKey，否则按文案兜底
func IsDupKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

// Page 偏移分页参数
type Page struct {
	Offset int
	Limit  int
}

// Normalize limit 默认 20，上限 100
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}

func like(s string) string { return "%" + s + "%" }
