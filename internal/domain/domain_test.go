package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]SwapStatus]bool{
		{SwapPending, SwapAccepted}:   true,
		{SwapPending, SwapRejected}:   true,
		{SwapPending, SwapCancelled}:  true,
		{SwapAccepted, SwapCompleted}: true,
		{SwapAccepted, SwapCancelled}: true,
	}
	for _, from := range SwapStatuses {
		for _, to := range SwapStatuses {
			if got := CanTransition(from, to); got != allowed[[2]SwapStatus{from, to}] {
				t.Fatalf("CanTransition(%s, %s) = %v", from, to, got)
			}
		}
		if from.Terminal() {
			for _, to := range SwapStatuses {
				if CanTransition(from, to) {
					t.Fatalf("terminal %s can move to %s", from, to)
				}
			}
		}
	}
}

func TestCheckTransitionActors(t *testing.T) {
	r := &SwapRequest{ID: "s1", FromUserID: "a", ToUserID: "b"}
	cases := []struct {
		status SwapStatus
		actor  string
		to     SwapStatus
		want   error
	}{
		{SwapPending, "b", SwapAccepted, nil},
		{SwapPending, "a", SwapAccepted, ErrForbidden},
		{SwapPending, "b", SwapRejected, nil},
		{SwapPending, "a", SwapCancelled, nil},
		{SwapPending, "b", SwapCancelled, ErrForbidden},
		{SwapAccepted, "a", SwapCompleted, nil},
		{SwapAccepted, "b", SwapCompleted, nil},
		{SwapAccepted, "a", SwapCancelled, nil},
		{SwapAccepted, "b", SwapCancelled, nil},
		{SwapCompleted, "a", SwapCompleted, ErrInvalidTransition},
		{SwapCancelled, "b", SwapAccepted, ErrInvalidTransition},
		{SwapPending, "c", SwapAccepted, ErrForbidden},
		// 非参与方先于迁移表判断
		{SwapCompleted, "c", SwapPending, ErrForbidden},
		{SwapPending, "b", "done", ErrValidation},
	}
	for _, tc := range cases {
		r.Status = tc.status
		err := CheckTransition(r, tc.actor, tc.to)
		if tc.want == nil && err != nil || tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s -%s-> %s: err = %v, want %v", tc.status, tc.actor, tc.to, err, tc.want)
		}
	}
}

func TestTransitionErrorCarriesStatuses(t *testing.T) {
	r := &SwapRequest{FromUserID: "a", ToUserID: "b", Status: SwapRejected}
	err := fmt.Errorf("wrapped: %w", CheckTransition(r, "b", SwapAccepted))
	var te *TransitionError
	if !errors.As(err, &te) || te.From != SwapRejected || te.To != SwapAccepted {
		t.Fatalf("got %#v", err)
	}
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if !strings.Contains(err.Error(), `"rejected"`) {
		t.Fatalf("message lacks current status: %s", err)
	}
}

func TestNormalizeSkillName(t *testing.T) {
	cases := []struct {
		in, display, key string
		bad              bool
	}{
		{"Python", "Python", "python", false},
		{"  machine \t  learning ", "machine learning", "machine learning", false},
		{"", "", "", true},
		{" \n ", "", "", true},
		{strings.Repeat("é", MaxSkillNameLen), strings.Repeat("é", MaxSkillNameLen), strings.Repeat("é", MaxSkillNameLen), false},
		{strings.Repeat("x", MaxSkillNameLen+1), "", "", true},
	}
	for _, tc := range cases {
		d, k, err := NormalizeSkillName(tc.in)
		if tc.bad {
			if !errors.Is(err, ErrInvalidSkillName) {
				t.Fatalf("NormalizeSkillName(%q) err = %v", tc.in, err)
			}
			continue
		}
		if err != nil || d != tc.display || k != tc.key {
			t.Fatalf("NormalizeSkillName(%q) = %q, %q, %v", tc.in, d, k, err)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Errorf(KindDuplicateRating, "already rated %s", "s1"))
	if !errors.Is(err, ErrDuplicateRating) || errors.Is(err, ErrConflict) {
		t.Fatalf("kind matching broken: %v", err)
	}
	if KindOf(err) != KindDuplicateRating || KindOf(errors.New("plain")) != "" {
		t.Fatalf("KindOf mismatch")
	}
}

func TestBadgeRules(t *testing.T) {
	rule := func(name string) BadgeRule {
		for _, r := range BadgeRules {
			if r.Badge.Name == name {
				return r
			}
		}
		t.Fatalf("no rule %s", name)
		return BadgeRule{}
	}
	perfect, frequent, top := rule("Perfect Rating"), rule("Frequent Swapper"), rule("Top Rated")
	cases := []struct {
		u                    User
		perfect, freq, topOK bool
	}{
		{User{}, false, false, false},
		{User{Rating: 5, TotalRatings: 1}, true, false, false},
		{User{Rating: 4.9, TotalRatings: 10}, false, false, true},
		{User{Rating: 4.5, TotalRatings: 4}, false, false, false},
		{User{TotalCompletedSwaps: 5}, false, true, false},
		{User{TotalCompletedSwaps: 4}, false, false, false},
	}
	for i, tc := range cases {
		u := tc.u
		if perfect.Qualifies(&u) != tc.perfect || frequent.Qualifies(&u) != tc.freq || top.Qualifies(&u) != tc.topOK {
			t.Fatalf("case %d: %+v", i, u)
		}
	}
}
