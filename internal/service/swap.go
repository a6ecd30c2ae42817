package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

// SwapService 交换请求状态机
type SwapService struct {
	base
	catalog *SkillCatalog
	notes   *NotificationSink
	agg     *Aggregator

	// beforeCAS 在读到请求之后、CAS 之前调用（测试里用来制造并发修改）
	beforeCAS func(ctx context.Context, tx *repo.Store, r *domain.SwapRequest)
}

type CreateSwapInput struct {
	ToUserID         string
	OfferedSkill     string
	WantedSkill      string
	Message          string
	ProposedDuration *int // 小时
	PreferredFormat  string
}

const maxProposedHours = 1000

// Create 新建 pending 请求并通知对方
func (s *SwapService) Create(ctx context.Context, callerID string, in CreateSwapInput) (*domain.SwapRequest, error) {
	if in.ToUserID == "" {
		return nil, domain.Errorf(domain.KindValidation, "toUserId is required")
	}
	if callerID == in.ToUserID {
		return nil, domain.Errorf(domain.KindSameUser, "cannot send a swap request to yourself")
	}
	if _, _, err := domain.NormalizeSkillName(in.OfferedSkill); err != nil {
		return nil, err
	}
	if _, _, err := domain.NormalizeSkillName(in.WantedSkill); err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(in.Message)
	if tooLong(msg, domain.MaxSwapMessageLen) {
		return nil, domain.Errorf(domain.KindValidation, "message exceeds %d characters", domain.MaxSwapMessageLen)
	}
	format := in.PreferredFormat
	if format == "" {
		format = domain.FormatFlexible
	}
	if !domain.ValidFormat(format) {
		return nil, domain.Errorf(domain.KindValidation, "unknown preferred format %q", format)
	}
	if d := in.ProposedDuration; d != nil && (*d <= 0 || *d > maxProposedHours) {
		return nil, domain.Errorf(domain.KindValidation, "proposed duration must be between 1 and %d hours", maxProposedHours)
	}

	var id string
	err := s.store.Transaction(ctx, func(tx *repo.Store) error {
		from, err := tx.Users.FindByID(ctx, callerID)
		if err != nil {
			return fmt.Errorf("load requester: %w", err)
		}
		if from == nil || !from.IsActive {
			return domain.Errorf(domain.KindUserNotFound, "requesting user not found")
		}
		to, err := tx.Users.FindByID(ctx, in.ToUserID)
		if err != nil {
			return fmt.Errorf("load recipient: %w", err)
		}
		if to == nil || !to.IsActive {
			return domain.Errorf(domain.KindUserNotFound, "user %s not found", in.ToUserID)
		}
		offered, err := s.catalog.Resolve(ctx, tx, in.OfferedSkill)
		if err != nil {
			return err
		}
		wanted, err := s.catalog.Resolve(ctx, tx, in.WantedSkill)
		if err != nil {
			return err
		}
		now := s.now()
		r := &domain.SwapRequest{
			ID:               utils.NewID(),
			FromUserID:       from.ID,
			ToUserID:         to.ID,
			OfferedSkillID:   offered.ID,
			WantedSkillID:    wanted.ID,
			Message:          msg,
			Status:           domain.SwapPending,
			ProposedDuration: in.ProposedDuration,
			PreferredFormat:  format,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Swaps.Create(ctx, r); err != nil {
			return fmt.Errorf("create swap: %w", err)
		}
		_, err = s.notes.Emit(ctx, tx, domain.NotificationInput{
			RecipientID: to.ID,
			SenderID:    from.ID,
			Type:        domain.NotifySwapRequest,
			Title:       "New Swap Request",
			Message:     fmt.Sprintf("%s wants to swap %s for your %s", from.Username, offered.Name, wanted.Name),
			RelatedType: domain.RelatedSwapRequest,
			RelatedID:   r.ID,
		})
		id = r.ID
		return err
	})
	if err != nil {
		return nil, err
	}
	swapsCreated.Inc()
	s.log.Info("swap created", zap.String("id", id), zap.String("from", callerID), zap.String("to", in.ToUserID))
	return s.store.Swaps.FindByID(ctx, id)
}

// Transition 校验迁移表与操作人后做 CAS；状态已被并发修改时返回 InvalidTransition
func (s *SwapService) Transition(ctx context.Context, callerID, id string, to domain.SwapStatus) (*domain.SwapRequest, error) {
	var (
		from      domain.SwapStatus
		completed *domain.SwapRequest
	)
	err := s.store.Transaction(ctx, func(tx *repo.Store) error {
		r, err := tx.Swaps.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load swap: %w", err)
		}
		if r == nil {
			return domain.Errorf(domain.KindNotFound, "swap request not found")
		}
		if err := domain.CheckTransition(r, callerID, to); err != nil {
			return err
		}
		from = r.Status
		now := s.now()
		var completedAt *time.Time
		if to == domain.SwapCompleted {
			completedAt = &now
		}
		if s.beforeCAS != nil {
			s.beforeCAS(ctx, tx, r)
		}
		ok, err := tx.Swaps.CompareAndSetStatus(ctx, id, from, to, now, completedAt)
		if err != nil {
			return fmt.Errorf("update swap status: %w", err)
		}
		if !ok {
			cur, err := tx.Swaps.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("reload swap: %w", err)
			}
			if cur == nil {
				return domain.Errorf(domain.KindNotFound, "swap request not found")
			}
			return &domain.TransitionError{From: cur.Status, To: to}
		}

		if _, err := s.notes.Emit(ctx, tx, transitionNotice(r, callerID, to)); err != nil {
			return err
		}
		if to == domain.SwapCompleted {
			if err := s.agg.RecordCompletion(ctx, tx, r); err != nil {
				return err
			}
			completed = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	swapTransitions.WithLabelValues(string(from), string(to)).Inc()
	if completed != nil {
		s.agg.Invalidate(ctx, completed.FromUserID, completed.ToUserID)
	}
	s.log.Info("swap transitioned",
		zap.String("id", id), zap.String("by", callerID),
		zap.String("from", string(from)), zap.String("to", string(to)))
	return s.store.Swaps.FindByID(ctx, id)
}

// transitionNotice 发给触发方之外的另一方
func transitionNotice(r *domain.SwapRequest, actorID string, to domain.SwapStatus) domain.NotificationInput {
	actor := r.FromUser
	if actorID == r.ToUserID {
		actor = r.ToUser
	}
	wanted := "your skill"
	if r.WantedSkill != nil {
		wanted = r.WantedSkill.Name
	}
	n := domain.NotificationInput{
		RecipientID: r.Counterpart(actorID),
		SenderID:    actorID,
		RelatedType: domain.RelatedSwapRequest,
		RelatedID:   r.ID,
	}
	switch to {
	case domain.SwapAccepted:
		n.Type, n.Title = domain.NotifySwapAccepted, "Swap Request Accepted"
		n.Message = fmt.Sprintf("%s accepted your swap request for %s", username(actor), wanted)
	case domain.SwapRejected:
		n.Type, n.Title = domain.NotifySwapRejected, "Swap Request Rejected"
		n.Message = fmt.Sprintf("%s declined your swap request for %s", username(actor), wanted)
	case domain.SwapCompleted:
		n.Type, n.Title = domain.NotifySwapCompleted, "Swap Completed"
		n.Message = fmt.Sprintf("%s marked your skill swap as completed", username(actor))
	case domain.SwapCancelled:
		n.Type, n.Title = domain.NotifySwapCancelled, "Swap Request Cancelled"
		n.Message = fmt.Sprintf("%s cancelled the swap request.", username(actor))
	}
	return n
}

// Get 参与方或管理员可见，其他人一律 NotFound
func (s *SwapService) Get(ctx context.Context, callerID, id string, isAdmin bool) (*domain.SwapRequest, error) {
	r, err := s.store.Swaps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || (!isAdmin && !r.IsParticipant(callerID)) {
		return nil, domain.Errorf(domain.KindNotFound, "swap request not found")
	}
	return r, nil
}

func (s *SwapService) List(ctx context.Context, callerID, direction string, status domain.SwapStatus, p repo.Page) ([]domain.SwapRequest, int64, error) {
	switch direction {
	case repo.DirectionAll, "all":
		direction = repo.DirectionAll
	case repo.DirectionSent, repo.DirectionReceived:
	default:
		return nil, 0, domain.Errorf(domain.KindValidation, "direction must be sent, received or all")
	}
	if status != "" && !status.Valid() {
		return nil, 0, domain.Errorf(domain.KindValidation, "unknown status %q", status)
	}
	return s.store.Swaps.List(ctx, repo.SwapFilter{UserID: callerID, Direction: direction, Status: status, Page: p})
}

// Monitor 管理端全量列表
func (s *SwapService) Monitor(ctx context.Context, status domain.SwapStatus, p repo.Page) ([]domain.SwapRequest, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.Errorf(domain.KindValidation, "unknown status %q", status)
	}
	return s.store.Swaps.List(ctx, repo.SwapFilter{Status: status, Page: p})
}
