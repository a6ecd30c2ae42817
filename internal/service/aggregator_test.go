package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"skillswap/internal/domain"
)

func TestRatingAfterCompletionAndDuplicate(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	a := mustRegister(t, svc, "alice")
	b := mustRegister(t, svc, "bob")
	done := mustComplete(t, svc, a, b)

	r, err := svc.Aggregator.SubmitRating(ctx, a.ID, done.ID, RatingInput{Score: 5, Feedback: "great mentor"})
	if err != nil {
		t.Fatalf("submit rating: %v", err)
	}
	if r.RatedUserID != b.ID || r.RaterID != a.ID || r.Score != 5 {
		t.Fatalf("unexpected rating %+v", r)
	}
	bob := mustUser(t, svc, b.ID)
	if bob.Rating != 5.0 || bob.TotalRatings != 1 {
		t.Fatalf("bob rating = %v/%d, want 5.0/1", bob.Rating, bob.TotalRatings)
	}
	if n := len(notificationsOf(t, svc, b.ID, domain.NotifyRatingReceived)); n != 1 {
		t.Fatalf("rating_received notifications = %d, want 1", n)
	}

	_, err = svc.Aggregator.SubmitRating(ctx, a.ID, done.ID, RatingInput{Score: 4})
	if !errors.Is(err, domain.ErrDuplicateRating) {
		t.Fatalf("second rating err = %v, want duplicate", err)
	}
	_, total, _ := svc.Aggregator.ListReceived(ctx, b.ID, repoPage())
	if total != 1 {
		t.Fatalf("ratings rows = %d, want 1", total)
	}
	if bob := mustUser(t, svc, b.ID); bob.Rating != 5.0 || bob.TotalRatings != 1 {
		t.Fatalf("duplicate changed stats: %v/%d", bob.Rating, bob.TotalRatings)
	}

	// 5 分且至少一条 -> Perfect Rating
	badges, _ := svc.Users.Badges(ctx, b.ID)
	if !hasBadge(badges, domain.BadgePerfectRating.Name) {
		t.Fatalf("bob missing Perfect Rating: %+v", badges)
	}
}

func TestSubmitRatingPreconditionOrder(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	a := mustRegister(t, svc, "alice")
	b := mustRegister(t, svc, "bob")
	c := mustRegister(t, svc, "carol")
	pending := mustSwap(t, svc, a, b)
	done := mustComplete(t, svc, a, b)
	bad := 9

	cases := []struct {
		name   string
		caller string
		swap   string
		in     RatingInput
		want   error
	}{
		{"missing swap", a.ID, "nope", RatingInput{Score: 0}, domain.ErrNotFound},
		{"not completed before forbidden", c.ID, pending.ID, RatingInput{Score: 0}, domain.ErrNotEligible},
		{"outsider before score", c.ID, done.ID, RatingInput{Score: 0}, domain.ErrForbidden},
		{"score too low", a.ID, done.ID, RatingInput{Score: 0}, domain.ErrInvalidScore},
		{"score too high", a.ID, done.ID, RatingInput{Score: 6}, domain.ErrInvalidScore},
		{"fractional score", a.ID, done.ID, RatingInput{Score: 4.5}, domain.ErrInvalidScore},
		{"bad aspect", a.ID, done.ID, RatingInput{Score: 4, Reliability: &bad}, domain.ErrInvalidScore},
		{"feedback too long", a.ID, done.ID, RatingInput{Score: 4, Feedback: strings.Repeat("f", 501)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Aggregator.SubmitRating(ctx, tc.caller, tc.swap, tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if bob := mustUser(t, svc, b.ID); bob.TotalRatings != 0 {
		t.Fatalf("failed submissions changed stats: %d", bob.TotalRatings)
	}
}

func TestRatingMeanOverAllSwaps(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	b := mustRegister(t, svc, "bob")
	scores := []float64{5, 4, 3, 2}
	for i, s := range scores {
		rater := mustRegister(t, svc, "rater"+string(rune('a'+i)))
		done := mustComplete(t, svc, rater, b)
		if _, err := svc.Aggregator.SubmitRating(ctx, rater.ID, done.ID, RatingInput{Score: s}); err != nil {
			t.Fatalf("rating %d: %v", i, err)
		}
	}
	bob := mustUser(t, svc, b.ID)
	if bob.TotalRatings != 4 || math.Abs(bob.Rating-3.5) > 1e-9 {
		t.Fatalf("bob = %v/%d, want 3.5/4", bob.Rating, bob.TotalRatings)
	}
	// 第一条 5 分时授予过 Perfect Rating，之后均值下降也不收回
	badges, _ := svc.Users.Badges(ctx, b.ID)
	if !hasBadge(badges, domain.BadgePerfectRating.Name) {
		t.Fatalf("Perfect Rating should stay awarded")
	}
}

func TestFrequentSwapperAwardedOnce(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	a := mustRegister(t, svc, "alice")
	b := mustRegister(t, svc, "bob")

	for i := 0; i < 4; i++ {
		mustComplete(t, svc, a, b)
	}
	badges, _ := svc.Users.Badges(ctx, a.ID)
	if hasBadge(badges, domain.BadgeFrequentSwapper.Name) {
		t.Fatalf("awarded before fifth completion")
	}
	mustComplete(t, svc, a, b)

	for _, u := range []string{a.ID, b.ID} {
		if got := mustUser(t, svc, u).TotalCompletedSwaps; got != 5 {
			t.Fatalf("completed swaps = %d, want 5", got)
		}
		badges, _ := svc.Users.Badges(ctx, u)
		if countBadge(badges, domain.BadgeFrequentSwapper.Name) != 1 {
			t.Fatalf("user %s Frequent Swapper rows != 1: %+v", u, badges)
		}
		if n := badgeNotices(t, svc, u, domain.BadgeFrequentSwapper.Name); n != 1 {
			t.Fatalf("user %s Frequent Swapper notifications = %d, want 1", u, n)
		}
	}

	// 再完成一次 + 手动重评都不会重复授予
	mustComplete(t, svc, a, b)
	for i := 0; i < 2; i++ {
		awarded, err := svc.Aggregator.EvaluateBadges(ctx, nil, a.ID)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if len(awarded) != 0 {
			t.Fatalf("re-evaluation awarded %+v", awarded)
		}
	}
	if n := badgeNotices(t, svc, a.ID, domain.BadgeFrequentSwapper.Name); n != 1 {
		t.Fatalf("notifications after re-evaluation = %d, want 1", n)
	}
}

func TestTopRatedNeedsFiveRatings(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	b := mustRegister(t, svc, "bob")
	scores := []float64{5, 4, 5, 4}
	rate := func(i int, s float64) {
		rater := mustRegister(t, svc, "rater"+string(rune('a'+i)))
		done := mustComplete(t, svc, rater, b)
		if _, err := svc.Aggregator.SubmitRating(ctx, rater.ID, done.ID, RatingInput{Score: s}); err != nil {
			t.Fatalf("rating: %v", err)
		}
	}
	for i, s := range scores {
		rate(i, s)
	}
	badges, _ := svc.Users.Badges(ctx, b.ID)
	if hasBadge(badges, domain.BadgeTopRated.Name) {
		t.Fatalf("Top Rated awarded with 4 ratings")
	}
	rate(4, 5) // 23/5 = 4.6
	badges, _ = svc.Users.Badges(ctx, b.ID)
	if !hasBadge(badges, domain.BadgeTopRated.Name) {
		t.Fatalf("Top Rated missing at 4.6 over 5 ratings")
	}
}

func TestRecomputeRestoresStats(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	a := mustRegister(t, svc, "alice")
	b := mustRegister(t, svc, "bob")
	done := mustComplete(t, svc, a, b)
	if _, err := svc.Aggregator.SubmitRating(ctx, a.ID, done.ID, RatingInput{Score: 4}); err != nil {
		t.Fatalf("rating: %v", err)
	}

	// 模拟统计被破坏
	if err := svc.Store.Users.SetRatingStats(ctx, b.ID, 1, 9); err != nil {
		t.Fatal(err)
	}
	if err := svc.Store.Users.SetCompletedSwaps(ctx, b.ID, 42); err != nil {
		t.Fatal(err)
	}

	n, err := svc.Aggregator.RecomputeAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("recompute all = %d, %v", n, err)
	}
	bob := mustUser(t, svc, b.ID)
	if bob.Rating != 4 || bob.TotalRatings != 1 || bob.TotalCompletedSwaps != 1 {
		t.Fatalf("bob after recompute = %v/%d/%d", bob.Rating, bob.TotalRatings, bob.TotalCompletedSwaps)
	}
	if err := svc.Aggregator.RecomputeUser(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("recompute missing err = %v", err)
	}
}

func TestSeedBadgesIdempotent(t *testing.T) {
	svc := newTestServices(t, Options{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		got, err := svc.Aggregator.SeedBadges(ctx)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		if len(got) != len(domain.BadgeCatalog()) {
			t.Fatalf("seeded %d badges", len(got))
		}
	}
	all, _ := svc.Users.BadgeCatalog(ctx)
	if len(all) != len(domain.BadgeCatalog()) {
		t.Fatalf("badge rows = %d, want %d", len(all), len(domain.BadgeCatalog()))
	}
}

func hasBadge(ubs []domain.UserBadge, name string) bool { return countBadge(ubs, name) > 0 }

func countBadge(ubs []domain.UserBadge, name string) int {
	n := 0
	for _, ub := range ubs {
		if ub.Badge != nil && ub.Badge.Name == name {
			n++
		}
	}
	return n
}

func badgeNotices(t *testing.T, svc *Services, userID, badge string) int {
	t.Helper()
	n := 0
	for _, note := range notificationsOf(t, svc, userID, domain.NotifyBadgeEarned) {
		if strings.Contains(note.Message, badge) {
			n++
		}
	}
	return n
}
