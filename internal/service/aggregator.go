package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"skillswap/internal/core/cache"
	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

// Aggregator 唯一写 rating / total_ratings / total_completed_swaps 的地方
type Aggregator struct {
	base
	notes *NotificationSink
	cache *cache.Cache
}

func ProfileCacheKey(userID string) string { return "user:profile:" + userID }

// RatingInput Score 用 float64 接收，非整数按 InvalidScore 处理
type RatingInput struct {
	Score           float64
	Feedback        string
	TeachingQuality *int
	Communication   *int
	Reliability     *int
}

// SubmitRating 前置条件依次：交换存在、已完成、评分人是参与方、未评过、分数合法
func (a *Aggregator) SubmitRating(ctx context.Context, callerID, swapID string, in RatingInput) (*domain.Rating, error) {
	var out *domain.Rating
	err := a.store.Transaction(ctx, func(tx *repo.Store) error {
		sw, err := tx.Swaps.FindByID(ctx, swapID)
		if err != nil {
			return fmt.Errorf("load swap: %w", err)
		}
		if sw == nil {
			return domain.Errorf(domain.KindNotFound, "swap request not found")
		}
		if sw.Status != domain.SwapCompleted {
			return domain.Errorf(domain.KindNotEligible, "only completed swaps can be rated (status %s)", sw.Status)
		}
		if !sw.IsParticipant(callerID) {
			return domain.Errorf(domain.KindForbidden, "only participants can rate this swap")
		}
		dup, err := tx.Ratings.Exists(ctx, swapID, callerID)
		if err != nil {
			return fmt.Errorf("check rating: %w", err)
		}
		if dup {
			return domain.Errorf(domain.KindDuplicateRating, "you have already rated this swap")
		}
		score, err := checkScore("score", in.Score)
		if err != nil {
			return err
		}
		for name, v := range map[string]*int{
			"teachingQuality": in.TeachingQuality,
			"communication":   in.Communication,
			"reliability":     in.Reliability,
		} {
			if v != nil && !domain.ValidScore(*v) {
				return domain.Errorf(domain.KindInvalidScore, "%s must be between %d and %d", name, domain.MinScore, domain.MaxScore)
			}
		}
		feedback := strings.TrimSpace(in.Feedback)
		if tooLong(feedback, domain.MaxFeedbackLen) {
			return domain.Errorf(domain.KindValidation, "feedback exceeds %d characters", domain.MaxFeedbackLen)
		}

		rated := sw.Counterpart(callerID)
		r := &domain.Rating{
			ID:              utils.NewID(),
			SwapRequestID:   sw.ID,
			RaterID:         callerID,
			RatedUserID:     rated,
			Score:           score,
			Feedback:        feedback,
			TeachingQuality: in.TeachingQuality,
			Communication:   in.Communication,
			Reliability:     in.Reliability,
			CreatedAt:       a.now(),
		}
		if err := tx.Ratings.Create(ctx, r); err != nil {
			return err
		}
		if err := a.refreshRating(ctx, tx, rated); err != nil {
			return err
		}
		rater := sw.FromUser
		if callerID == sw.ToUserID {
			rater = sw.ToUser
		}
		if _, err := a.notes.Emit(ctx, tx, domain.NotificationInput{
			RecipientID: rated,
			SenderID:    callerID,
			Type:        domain.NotifyRatingReceived,
			Title:       "New Rating Received",
			Message:     fmt.Sprintf("%s gave you a %d-star rating", username(rater), score),
			RelatedType: domain.RelatedRating,
			RelatedID:   r.ID,
		}); err != nil {
			return err
		}
		if _, err := a.EvaluateBadges(ctx, tx, rated); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	ratingsSubmitted.Inc()
	a.Invalidate(ctx, out.RatedUserID)
	a.log.Info("rating submitted",
		zap.String("swap", swapID), zap.String("rater", callerID),
		zap.String("rated", out.RatedUserID), zap.Int("score", out.Score))
	return out, nil
}

func checkScore(field string, v float64) (int, error) {
	if v != math.Trunc(v) || !domain.ValidScore(int(v)) {
		return 0, domain.Errorf(domain.KindInvalidScore, "%s must be an integer between %d and %d", field, domain.MinScore, domain.MaxScore)
	}
	return int(v), nil
}

// refreshRating 从已持久化的全部评分重算均值与条数
func (a *Aggregator) refreshRating(ctx context.Context, tx *repo.Store, userID string) error {
	avg, n, err := tx.Ratings.Aggregate(ctx, userID)
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	if err := tx.Users.SetRatingStats(ctx, userID, avg, n); err != nil {
		return fmt.Errorf("store rating stats: %w", err)
	}
	return nil
}

// RecordCompletion 交换进入 completed 时由状态机在同一事务里调用
func (a *Aggregator) RecordCompletion(ctx context.Context, tx *repo.Store, sw *domain.SwapRequest) error {
	st := a.in(tx)
	if err := st.Users.IncrementCompletedSwaps(ctx, sw.FromUserID, sw.ToUserID); err != nil {
		return fmt.Errorf("count completed swap: %w", err)
	}
	for _, uid := range []string{sw.FromUserID, sw.ToUserID} {
		if _, err := a.EvaluateBadges(ctx, st, uid); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateBadges 按当前统计授予达标徽章；重复调用不会重复授予，返回本次新授予的
func (a *Aggregator) EvaluateBadges(ctx context.Context, tx *repo.Store, userID string) ([]domain.Badge, error) {
	st := a.in(tx)
	u, err := st.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, domain.Errorf(domain.KindUserNotFound, "user %s not found", userID)
	}
	var awarded []domain.Badge
	for _, rule := range domain.BadgeRules {
		if !rule.Qualifies(u) {
			continue
		}
		b, isNew, err := a.AwardBadge(ctx, st, userID, rule.Badge)
		if err != nil {
			return nil, err
		}
		if isNew {
			awarded = append(awarded, *b)
		}
	}
	return awarded, nil
}

// AwardBadge 首次授予时发一条 badge_earned 通知
func (a *Aggregator) AwardBadge(ctx context.Context, tx *repo.Store, userID string, def domain.Badge) (*domain.Badge, bool, error) {
	st := a.in(tx)
	b, err := st.Badges.Ensure(ctx, def)
	if err != nil {
		return nil, false, fmt.Errorf("ensure badge %q: %w", def.Name, err)
	}
	isNew, err := st.Badges.Award(ctx, &domain.UserBadge{
		ID:       utils.NewID(),
		UserID:   userID,
		BadgeID:  b.ID,
		EarnedAt: a.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("award badge %q: %w", b.Name, err)
	}
	if !isNew {
		return b, false, nil
	}
	if _, err := a.notes.Emit(ctx, st, domain.NotificationInput{
		RecipientID: userID,
		Type:        domain.NotifyBadgeEarned,
		Title:       "New Badge Earned",
		Message:     fmt.Sprintf("You've earned the '%s' badge!", b.Name),
		RelatedType: domain.RelatedBadge,
		RelatedID:   b.ID,
	}); err != nil {
		return nil, false, err
	}
	badgesAwarded.WithLabelValues(b.Name).Inc()
	a.log.Info("badge awarded", zap.String("user", userID), zap.String("badge", b.Name))
	return b, true, nil
}

// SeedBadges 写入全部内置徽章定义
func (a *Aggregator) SeedBadges(ctx context.Context) ([]domain.Badge, error) {
	var out []domain.Badge
	for _, def := range domain.BadgeCatalog() {
		b, err := a.store.Badges.Ensure(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("seed badge %q: %w", def.Name, err)
		}
		out = append(out, *b)
	}
	return out, nil
}

// RecomputeUser 从评分与交换记录重建统计并补发徽章
func (a *Aggregator) RecomputeUser(ctx context.Context, userID string) error {
	err := a.store.Transaction(ctx, func(tx *repo.Store) error {
		u, err := tx.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return domain.Errorf(domain.KindUserNotFound, "user %s not found", userID)
		}
		if err := a.refreshRating(ctx, tx, userID); err != nil {
			return err
		}
		n, err := tx.Swaps.CountCompletedFor(ctx, userID)
		if err != nil {
			return fmt.Errorf("count completed swaps: %w", err)
		}
		if err := tx.Users.SetCompletedSwaps(ctx, userID, int(n)); err != nil {
			return fmt.Errorf("store completed swaps: %w", err)
		}
		_, err = a.EvaluateBadges(ctx, tx, userID)
		return err
	})
	if err != nil {
		return err
	}
	a.Invalidate(ctx, userID)
	return nil
}

// RecomputeAll 逐个用户重算，遇错即停；返回已处理数
func (a *Aggregator) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := a.store.Users.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := a.RecomputeUser(ctx, id); err != nil {
			return i, fmt.Errorf("recompute %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (a *Aggregator) ListReceived(ctx context.Context, userID string, p repo.Page) ([]domain.Rating, int64, error) {
	return a.store.Ratings.ListReceived(ctx, userID, p)
}

func (a *Aggregator) ListGiven(ctx context.Context, userID string, p repo.Page) ([]domain.Rating, int64, error) {
	return a.store.Ratings.ListGiven(ctx, userID, p)
}

// Invalidate 提交后清掉公开资料缓存；失败只记日志，TTL 兜底
func (a *Aggregator) Invalidate(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileCacheKey(id))
	}
	if err := a.cache.Del(ctx, keys...); err != nil {
		a.log.Warn("invalidate profile cache", zap.Strings("users", userIDs), zap.Error(err))
	}
}

func username(u *domain.User) string {
	if u == nil || u.Username == "" {
		return "Someone"
	}
	return u.Username
}
