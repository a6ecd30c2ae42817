package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"skillswap/internal/domain"
	"skillswap/internal/repo"
)

type AdminService struct {
	base
	notes *NotificationSink
	agg   *Aggregator
}

func (s *AdminService) ListUsers(ctx context.Context, q string, p repo.Page) ([]domain.User, int64, error) {
	return s.store.Users.List(ctx, repo.UserFilter{Q: q, Page: p})
}

// SetActive 封禁/解封；封禁用户无法登录，也不出现在发现列表
func (s *AdminService) SetActive(ctx context.Context, adminID, userID string, active bool) error {
	if adminID == userID && !active {
		return domain.Errorf(domain.KindValidation, "cannot ban yourself")
	}
	ok, err := s.store.Users.SetActive(ctx, userID, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if !ok {
		return domain.Errorf(domain.KindUserNotFound, "user not found")
	}
	s.agg.Invalidate(ctx, userID)
	s.log.Info("user status changed", zap.String("admin", adminID), zap.String("user", userID), zap.Bool("active", active))
	return nil
}

type PlatformStats struct {
	Users         int64                       `json:"users"`
	Skills        int64                       `json:"skills"`
	Ratings       int64                       `json:"ratings"`
	AverageRating float64                     `json:"averageRating"`
	Swaps         map[domain.SwapStatus]int64 `json:"swaps"`
}

func (s *AdminService) Stats(ctx context.Context) (*PlatformStats, error) {
	var (
		out PlatformStats
		err error
	)
	if out.Users, err = s.store.Users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if out.Skills, err = s.store.Skills.Count(ctx); err != nil {
		return nil, fmt.Errorf("count skills: %w", err)
	}
	if out.AverageRating, out.Ratings, err = s.store.Ratings.Overall(ctx); err != nil {
		return nil, fmt.Errorf("rating stats: %w", err)
	}
	if out.Swaps, err = s.store.Swaps.CountByStatus(ctx); err != nil {
		return nil, fmt.Errorf("swap stats: %w", err)
	}
	return &out, nil
}

func (s *AdminService) Broadcast(ctx context.Context, adminID, title, message string) (int, error) {
	return s.notes.Broadcast(ctx, adminID, title, message)
}

// SetRole 运维入口（swapctl）：login 可以是邮箱、用户名或 ID
func (s *AdminService) SetRole(ctx context.Context, login, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.Errorf(domain.KindValidation, "role must be user or admin")
	}
	u, err := s.store.Users.FindByEmail(ctx, login)
	if err == nil && u == nil {
		u, err = s.store.Users.FindByUsername(ctx, login)
	}
	if err == nil && u == nil {
		u, err = s.store.Users.FindByID(ctx, login)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, domain.Errorf(domain.KindUserNotFound, "user %q not found", login)
	}
	if err := s.store.Users.UpdateProfile(ctx, u.ID, map[string]any{"role": role}); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	s.log.Info("user role changed", zap.String("user", u.ID), zap.String("role", role))
	u.Role = role
	return u, nil
}
