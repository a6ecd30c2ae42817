package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

// NotificationSink 通知只追加，读侧只允许翻已读
type NotificationSink struct {
	base
}

// Emit 纯追加；超长标题/正文截断而不是失败
func (s *NotificationSink) Emit(ctx context.Context, tx *repo.Store, in domain.NotificationInput) (*domain.Notification, error) {
	if in.RecipientID == "" {
		return nil, domain.Errorf(domain.KindValidation, "notification recipient is required")
	}
	n := &domain.Notification{
		ID:          utils.NewID(),
		RecipientID: in.RecipientID,
		Type:        in.Type,
		Title:       clip(in.Title, domain.MaxNotificationTitleLen),
		Message:     clip(in.Message, domain.MaxNotificationMessageLen),
		RelatedType: in.RelatedType,
		RelatedID:   in.RelatedID,
		CreatedAt:   s.now(),
	}
	if in.SenderID != "" {
		sender := in.SenderID
		n.SenderID = &sender
	}
	if err := s.in(tx).Notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("emit notification: %w", err)
	}
	notificationsEmitted.WithLabelValues(string(n.Type)).Inc()
	return n, nil
}

// MarkRead 已读再标记不报错
func (s *NotificationSink) MarkRead(ctx context.Context, callerID, id string) error {
	n, err := s.store.Notifications.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}
	if n == nil {
		return domain.Errorf(domain.KindNotFound, "notification not found")
	}
	if n.RecipientID != callerID {
		return domain.Errorf(domain.KindForbidden, "notification belongs to another user")
	}
	if n.IsRead {
		return nil
	}
	return s.store.Notifications.MarkRead(ctx, id, s.now())
}

func (s *NotificationSink) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, callerID, s.now())
}

// List typ 为空表示不按类型过滤
func (s *NotificationSink) List(ctx context.Context, callerID string, unreadOnly bool, typ domain.NotificationType, p repo.Page) ([]domain.Notification, int64, error) {
	if typ != "" && !typ.Valid() {
		return nil, 0, domain.Errorf(domain.KindValidation, "unknown notification type %q", typ)
	}
	return s.store.Notifications.List(ctx, repo.NotificationFilter{
		RecipientID: callerID,
		UnreadOnly:  unreadOnly,
		Type:        typ,
		Page:        p,
	})
}

func (s *NotificationSink) UnreadCount(ctx context.Context, callerID string) (int64, error) {
	return s.store.Notifications.UnreadCount(ctx, callerID)
}

// Broadcast 给所有未封禁用户发 system 通知，返回条数
func (s *NotificationSink) Broadcast(ctx context.Context, senderID, title, message string) (int, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return 0, domain.Errorf(domain.KindValidation, "title and message are required")
	}
	if tooLong(title, domain.MaxNotificationTitleLen) || tooLong(message, domain.MaxNotificationMessageLen) {
		return 0, domain.Errorf(domain.KindValidation, "title or message too long")
	}
	ids, err := s.store.Users.ActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipients: %w", err)
	}
	now := s.now()
	var sender *string
	if senderID != "" {
		sender = &senderID
	}
	batch := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, domain.Notification{
			ID:          utils.NewID(),
			RecipientID: id,
			SenderID:    sender,
			Type:        domain.NotifySystem,
			Title:       title,
			Message:     message,
			CreatedAt:   now,
		})
	}
	err = s.store.Transaction(ctx, func(tx *repo.Store) error {
		return tx.Notifications.CreateBatch(ctx, batch)
	})
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}
	notificationsEmitted.WithLabelValues(string(domain.NotifySystem)).Add(float64(len(batch)))
	s.log.Info("broadcast sent", zap.Int("recipients", len(batch)), zap.String("title", title))
	return len(batch), nil
}
