package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"skillswap/internal/core/database"
	"skillswap/internal/domain"
	"skillswap/internal/repo"
	"skillswap/pkg/utils"
)

// stepClock 每次取时间前进一秒，保证 created_at 排序稳定
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + utils.NewID() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repo.NewStore(db)
}

func newTestServices(t *testing.T, o Options) *Services {
	t.Helper()
	if o.Now == nil {
		clk := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		o.Now = clk.Now
	}
	return New(newTestStore(t), o)
}

func mustRegister(t *testing.T, svc *Services, username string) *domain.User {
	t.Helper()
	u, err := svc.Users.Register(context.Background(), RegisterInput{
		Email:    username + "@example.com",
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func mustSwap(t *testing.T, svc *Services, from, to *domain.User) *domain.SwapRequest {
	t.Helper()
	r, err := svc.Swaps.Create(context.Background(), from.ID, CreateSwapInput{
		ToUserID:     to.ID,
		OfferedSkill: "Python",
		WantedSkill:  "Guitar",
	})
	if err != nil {
		t.Fatalf("create swap: %v", err)
	}
	return r
}

// mustComplete pending -> accepted -> completed
func mustComplete(t *testing.T, svc *Services, from, to *domain.User) *domain.SwapRequest {
	t.Helper()
	ctx := context.Background()
	r := mustSwap(t, svc, from, to)
	if _, err := svc.Swaps.Transition(ctx, to.ID, r.ID, domain.SwapAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	done, err := svc.Swaps.Transition(ctx, from.ID, r.ID, domain.SwapCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return done
}

func mustUser(t *testing.T, svc *Services, id string) *domain.User {
	t.Helper()
	u, err := svc.Users.Me(context.Background(), id)
	if err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	return u
}

func notificationsOf(t *testing.T, svc *Services, userID string, typ domain.NotificationType) []domain.Notification {
	t.Helper()
	all, _, err := svc.Store.Notifications.List(context.Background(), repo.NotificationFilter{
		RecipientID: userID,
		Type:        typ,
		Page:        repo.Page{Limit: 100},
	})
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return all
}

func repoPage() repo.Page { return repo.Page{Limit: 50} }
