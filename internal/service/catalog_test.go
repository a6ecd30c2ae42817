package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skillswap/internal/domain"
)

func TestResolveNormalizesAndReuses(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()

	first, err := svc.Catalog.ResolveCategory(ctx, nil, "  Python   Programming ", "technology")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Name != "Python Programming" || first.Category != "technology" {
		t.Fatalf("unexpected skill %+v", first)
	}
	for _, name := range []string{"python programming", "PYTHON\tPROGRAMMING", "Python Programming"} {
		s, err := svc.Catalog.ResolveCategory(ctx, nil, name, "music")
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		if s.ID != first.ID || s.Name != first.Name || s.Category != "technology" {
			t.Fatalf("resolve %q = %+v, want existing %+v", name, s, first)
		}
	}
	_, total, _ := svc.Catalog.List(ctx, "python", "", repoPage())
	if total != 1 {
		t.Fatalf("skill rows = %d, want 1", total)
	}

	other, err := svc.Catalog.Resolve(ctx, nil, "Knitting")
	if err != nil || other.Category != domain.CategoryOther {
		t.Fatalf("default category = %+v, %v", other, err)
	}
}

func TestResolveRejectsBadNames(t *testing.T) {
	svc := newTestServices(t, Options{})
	for _, name := range []string{"", "   ", strings.Repeat("a", domain.MaxSkillNameLen+1)} {
		if _, err := svc.Catalog.Resolve(context.Background(), nil, name); !errors.Is(err, domain.ErrInvalidSkillName) {
			t.Fatalf("resolve %q err = %v", name, err)
		}
	}
	// 恰好 100 个字符可以
	if _, err := svc.Catalog.Resolve(context.Background(), nil, strings.Repeat("技", domain.MaxSkillNameLen)); err != nil {
		t.Fatalf("max length name: %v", err)
	}
}

func TestUpsertConvergesOnExistingKey(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	s1, err := svc.Store.Skills.Upsert(ctx, &domain.Skill{ID: "s1", Name: "Go", NameKey: "go", Category: "technology"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// 模拟并发输家：查询时不存在，插入时冲突
	s2, err := svc.Store.Skills.Upsert(ctx, &domain.Skill{ID: "s2", Name: "GO", NameKey: "go", Category: "other"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if s1.ID != "s1" || s2.ID != "s1" || s2.Name != "Go" {
		t.Fatalf("did not converge: %+v %+v", s1, s2)
	}
}

func TestPopularAndDelete(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	_, err := svc.Users.Register(ctx, RegisterInput{
		Email: "alice@example.com", Username: "alice", Password: "password123",
		OfferedSkills: []string{"Go", "Cooking"}, WantedSkills: []string{"Go"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Users.Register(ctx, RegisterInput{
		Email: "bob@example.com", Username: "bob", Password: "password123",
		OfferedSkills: []string{"go"},
	}); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	unused, _ := svc.Catalog.Resolve(ctx, nil, "Juggling")

	top, err := svc.Catalog.Popular(ctx, 2)
	if err != nil || len(top) != 2 {
		t.Fatalf("popular = %+v, %v", top, err)
	}
	if top[0].Name != "Go" || top[0].UsageCount != 3 {
		t.Fatalf("top skill = %+v", top[0])
	}

	if err := svc.Catalog.Delete(ctx, top[0].ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete used skill err = %v", err)
	}
	if err := svc.Catalog.Delete(ctx, unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if err := svc.Catalog.Delete(ctx, unused.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
	if _, _, err := svc.Catalog.List(ctx, "", "astrology", repoPage()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("bad category err = %v", err)
	}
}
