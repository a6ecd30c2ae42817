package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap/internal/domain"
	"skillswap/pkg/utils"
)

type BadgeRepo struct{ db *gorm.DB }

func NewBadgeRepo(db *gorm.DB) *BadgeRepo { return &BadgeRepo{db: db} }

// Ensure 按名称取或建徽章定义
func (r *BadgeRepo) Ensure(ctx context.Context, def domain.Badge) (*domain.Badge, error) {
	b := def
	b.ID = utils.NewID()
	b.IsActive = true
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&b).Error
	if err != nil && !IsDupKey(err) {
		return nil, err
	}
	var got domain.Badge
	if err := r.db.WithContext(ctx).First(&got, "name = ?", def.Name).Error; err != nil {
		return nil, err
	}
	return &got, nil
}

// Award 首次授予返回 true；已持有返回 false
func (r *BadgeRepo) Award(ctx context.Context, ub *domain.UserBadge) (bool, error) {
	res := r.db.WithContext(ctx).Omit("Badge").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "badge_id"}}, DoNothing: true}).
		Create(ub)
	if res.Error != nil {
		if IsDupKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BadgeRepo) ListForUser(ctx context.Context, userID string) ([]domain.UserBadge, error) {
	var out []domain.UserBadge
	err := r.db.WithContext(ctx).Preload("Badge").
		Where("user_id = ?", userID).Order("earned_at, id").Find(&out).Error
	return out, err
}

func (r *BadgeRepo) ListAll(ctx context.Context) ([]domain.Badge, error) {
	var out []domain.Badge
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at, name").Find(&out).Error
	return out, err
}
