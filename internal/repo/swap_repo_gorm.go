package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type SwapRepo struct{ db *gorm.DB }

func NewSwapRepo(db *gorm.DB) *SwapRepo { return &SwapRepo{db: db} }

func (r *SwapRepo) Create(ctx context.Context, s *domain.SwapRequest) error {
	return r.db.WithContext(ctx).Omit("FromUser", "ToUser", "OfferedSkill", "WantedSkill").Create(s).Error
}

// FindByID 带双方用户与技能；不存在返回 nil, nil
func (r *SwapRepo) FindByID(ctx context.Context, id string) (*domain.SwapRequest, error) {
	var s domain.SwapRequest
	err := r.withRefs(r.db.WithContext(ctx)).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SwapRepo) withRefs(q *gorm.DB) *gorm.DB {
	return q.Preload("FromUser").Preload("ToUser").Preload("OfferedSkill").Preload("WantedSkill")
}

// CompareAndSetStatus 仅当当前状态仍为 from 时更新；返回是否命中
func (r *SwapRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.SwapStatus, at time.Time, completedAt *time.Time) (bool, error) {
	cols := map[string]any{"status": to, "updated_at": at}
	if completedAt != nil {
		cols["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).Model(&domain.SwapRequest{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(cols)
	return res.RowsAffected == 1, res.Error
}

// 方向过滤
const (
	DirectionAll      = ""
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

type SwapFilter struct {
	UserID    string // 为空表示全部（管理端）
	Direction string
	Status    domain.SwapStatus
	Page
}

func (r *SwapRepo) List(ctx context.Context, f SwapFilter) ([]domain.SwapRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.SwapRequest{})
	if f.UserID != "" {
		switch f.Direction {
		case DirectionSent:
			q = q.Where("from_user_id = ?", f.UserID)
		case DirectionReceived:
			q = q.Where("to_user_id = ?", f.UserID)
		default:
			q = q.Where("from_user_id = ? OR to_user_id = ?", f.UserID, f.UserID)
		}
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p := f.Page.Normalize()
	var out []domain.SwapRequest
	err := r.withRefs(q).Order("created_at DESC, id DESC").Offset(p.Offset).Limit(p.Limit).Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByStatus 各状态数量，缺的状态补 0
func (r *SwapRepo) CountByStatus(ctx context.Context) (map[domain.SwapStatus]int64, error) {
	var rows []struct {
		Status domain.SwapStatus
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&domain.SwapRequest{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SwapStatus]int64, len(domain.SwapStatuses))
	for _, s := range domain.SwapStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// CountCompletedFor 用户作为任一方参与的已完成交换数
func (r *SwapRepo) CountCompletedFor(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.SwapRequest{}).
		Where("status = ? AND (from_user_id = ? OR to_user_id = ?)", domain.SwapCompleted, userID, userID).
		Count(&n).Error
	return n, err
}
