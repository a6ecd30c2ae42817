package repo

import (
	"context"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type RatingRepo struct{ db *gorm.DB }

func NewRatingRepo(db *gorm.DB) *RatingRepo { return &RatingRepo{db: db} }

// Create 唯一索引兜底并发重复评分
func (r *RatingRepo) Create(ctx context.Context, rt *domain.Rating) error {
	err := r.db.WithContext(ctx).Omit("Rater").Create(rt).Error
	if IsDupKey(err) {
		return domain.Errorf(domain.KindDuplicateRating, "you have already rated this swap")
	}
	return err
}

func (r *RatingRepo) Exists(ctx context.Context, swapID, raterID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Rating{}).
		Where("swap_request_id = ? AND rater_id = ?", swapID, raterID).Count(&n).Error
	return n > 0, err
}

// Aggregate 被评分用户收到的全部评分均值与条数；无评分时 0, 0
func (r *RatingRepo) Aggregate(ctx context.Context, ratedUserID string) (avg float64, count int, err error) {
	var row struct {
		Avg float64
		N   int
	}
	err = r.db.WithContext(ctx).Model(&domain.Rating{}).
		Select("COALESCE(AVG(score), 0) AS avg, COUNT(*) AS n").
		Where("rated_user_id = ?", ratedUserID).
		Scan(&row).Error
	return row.Avg, row.N, err
}

func (r *RatingRepo) ListReceived(ctx context.Context, ratedUserID string, p Page) ([]domain.Rating, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Rating{}).Where("rated_user_id = ?", ratedUserID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p = p.Normalize()
	var out []domain.Rating
	err := q.Preload("Rater").Order("created_at DESC, id DESC").Offset(p.Offset).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

// Overall 全站评分条数与均值
func (r *RatingRepo) Overall(ctx context.Context) (avg float64, count int64, err error) {
	var row struct {
		Avg float64
		N   int64
	}
	err = r.db.WithContext(ctx).Model(&domain.Rating{}).
		Select("COALESCE(AVG(score), 0) AS avg, COUNT(*) AS n").
		Scan(&row).Error
	return row.Avg, row.N, err
}

func (r *RatingRepo) ListGiven(ctx context.Context, raterID string, p Page) ([]domain.Rating, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Rating{}).Where("rater_id = ?", raterID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p = p.Normalize()
	var out []domain.Rating
	err := q.Order("created_at DESC, id DESC").Offset(p.Offset).Limit(p.Limit).Find(&out).Error
	return out, total, err
}
