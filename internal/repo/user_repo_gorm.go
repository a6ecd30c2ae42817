package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if IsDupKey(err) {
		return domain.Errorf(domain.KindConflict, "email or username already registered")
	}
	return err
}

// FindByID 不存在返回 nil, nil；封禁用户（is_active=false）照常返回
func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "email = ?", strings.ToLower(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UserFilter struct {
	Q            string // username / 姓名模糊搜
	Skill        string // 提供该技能（按 name_key）
	Availability string
	PublicOnly   bool
	ActiveOnly   bool
	ExcludeID    string
	Page
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(f.Q); s != "" {
		l := like(strings.ToLower(s))
		q = q.Where("LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", l, l, l, l)
	}
	if f.Skill != "" {
		sub := r.db.Model(&domain.UserSkill{}).
			Select("user_skills.user_id").
			Joins("JOIN skills ON skills.id = user_skills.skill_id").
			Where("skills.name_key = ? AND user_skills.skill_type = ?", f.Skill, domain.SkillOffered)
		q = q.Where("id IN (?)", sub)
	}
	if f.Availability != "" {
		q = q.Where("availability = ?", f.Availability)
	}
	if f.PublicOnly {
		q = q.Where("is_public = ?", true)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if f.ExcludeID != "" {
		q = q.Where("id <> ?", f.ExcludeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p := f.Page.Normalize()
	var users []domain.User
	if err := q.Order("rating DESC, created_at DESC").Offset(p.Offset).Limit(p.Limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ActiveIDs 广播用
func (r *UserRepo) ActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("is_active = ?", true).Pluck("id", &ids).Error
	return ids, err
}

// AllIDs 统计重算用
func (r *UserRepo) AllIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.User{}).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error
	return n, err
}

// UpdateProfile 只写资料列，统计列不经过这里
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepo) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumn("last_active_at", at).Error
}

func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("is_active", active)
	return res.RowsAffected > 0, res.Error
}

// IncrementCompletedSwaps 原子 +1
func (r *UserRepo) IncrementCompletedSwaps(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id IN ?", ids).
		UpdateColumn("total_completed_swaps", gorm.Expr("total_completed_swaps + ?", 1)).Error
}

func (r *UserRepo) SetRatingStats(ctx context.Context, id string, avg float64, count int) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"rating": avg, "total_ratings": count}).Error
}

func (r *UserRepo) SetCompletedSwaps(ctx context.Context, id string, n int) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		UpdateColumn("total_completed_swaps", n).Error
}
