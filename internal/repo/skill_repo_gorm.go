package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap/internal/domain"
)

type SkillRepo struct{ db *gorm.DB }

func NewSkillRepo(db *gorm.DB) *SkillRepo { return &SkillRepo{db: db} }

// Upsert 按 name_key 取或建；并发下只有一行落库，输家读回赢家那行
func (r *SkillRepo) Upsert(ctx context.Context, s *domain.Skill) (*domain.Skill, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_key"}}, DoNothing: true}).
		Create(s).Error
	if err != nil && !IsDupKey(err) {
		return nil, err
	}
	var got domain.Skill
	if err := r.db.WithContext(ctx).First(&got, "name_key = ?", s.NameKey).Error; err != nil {
		return nil, err
	}
	return &got, nil
}

func (r *SkillRepo) FindByID(ctx context.Context, id string) (*domain.Skill, error) {
	var s domain.Skill
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SkillRepo) FindByKey(ctx context.Context, key string) (*domain.Skill, error) {
	var s domain.Skill
	err := r.db.WithContext(ctx).First(&s, "name_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type SkillFilter struct {
	Q        string
	Category string
	Page
}

func (r *SkillRepo) List(ctx context.Context, f SkillFilter) ([]domain.Skill, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Skill{})
	if s := strings.TrimSpace(f.Q); s != "" {
		q = q.Where("name_key LIKE ?", like(strings.ToLower(s)))
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p := f.Page.Normalize()
	var out []domain.Skill
	if err := q.Order("name_key").Offset(p.Offset).Limit(p.Limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SkillUsage 热门技能：被多少条 user_skill 引用
type SkillUsage struct {
	domain.Skill
	UsageCount int64 `json:"usageCount"`
}

func (r *SkillRepo) Popular(ctx context.Context, limit int) ([]SkillUsage, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var out []SkillUsage
	err := r.db.WithContext(ctx).Model(&domain.Skill{}).
		Select("skills.*, COUNT(user_skills.id) AS usage_count").
		Joins("LEFT JOIN user_skills ON user_skills.skill_id = skills.id").
		Group("skills.id").
		Order("usage_count DESC, skills.name_key").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountUsage 被 user_skill 与 swap 引用的次数之和
func (r *SkillRepo) CountUsage(ctx context.Context, id string) (int64, error) {
	var us, sw int64
	if err := r.db.WithContext(ctx).Model(&domain.UserSkill{}).Where("skill_id = ?", id).Count(&us).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.SwapRequest{}).
		Where("offered_skill_id = ? OR wanted_skill_id = ?", id, id).Count(&sw).Error; err != nil {
		return 0, err
	}
	return us + sw, nil
}

func (r *SkillRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Skill{})
	return res.RowsAffected > 0, res.Error
}

func (r *SkillRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Skill{}).Count(&n).Error
	return n, err
}
