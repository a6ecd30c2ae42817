package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"skillswap/internal/domain"
)

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// 每条 INSERT 的行数上限，控制在各驱动的占位符上限以内
const notificationBatchSize = 200

// CreateBatch 广播用，每 notificationBatchSize 行一条 INSERT
func (r *NotificationRepo) CreateBatch(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&ns, notificationBatchSize).Error
}

func (r *NotificationRepo) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead 已读的不再改 read_at
func (r *NotificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": at}).Error
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Type        domain.NotificationType
	Page
}

// List 最新在前；同一时刻按 id 倒序保证稳定
func (r *NotificationRepo) List(ctx context.Context, f NotificationFilter) ([]domain.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("recipient_id = ?", f.RecipientID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	p := f.Page.Normalize()
	var out []domain.Notification
	err := q.Order("created_at DESC, id DESC").Offset(p.Offset).Limit(p.Limit).Find(&out).Error
	return out, total, err
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).Count(&n).Error
	return n, err
}
