package repo

import (
	"context"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type UserSkillRepo struct{ db *gorm.DB }

func NewUserSkillRepo(db *gorm.DB) *UserSkillRepo { return &UserSkillRepo{db: db} }

func (r *UserSkillRepo) Create(ctx context.Context, us *domain.UserSkill) error {
	err := r.db.WithContext(ctx).Omit("Skill").Create(us).Error
	if IsDupKey(err) {
		return domain.Errorf(domain.KindConflict, "skill already listed as %s", us.SkillType)
	}
	return err
}

// ListByUser skillType 为空时返回全部
func (r *UserSkillRepo) ListByUser(ctx context.Context, userID string, t domain.SkillType) ([]domain.UserSkill, error) {
	q := r.db.WithContext(ctx).Preload("Skill").Where("user_id = ?", userID)
	if t != "" {
		q = q.Where("skill_type = ?", t)
	}
	var out []domain.UserSkill
	err := q.Order("created_at").Find(&out).Error
	return out, err
}
