package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"potd_engine/internal/app/notify"
	"potd_engine/internal/common"
)

func TestAdvanceWithoutSeasonIsSilent(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.advance.Advance(context.Background())
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Outcome != AdvanceNoSeason {
		t.Errorf("outcome = %q, want %q", res.Outcome, AdvanceNoSeason)
	}
	if len(env.dispatcher.kinds()) != 0 {
		t.Errorf("no-season advance dispatched %v", env.dispatcher.kinds())
	}
	if env.advance.Status() {
		t.Error("posting flag left on")
	}
}

func TestAdvanceLate(t *testing.T) {
	env := newTestEnv(t)
	s := env.season(t, "S", true)
	env.problem(t, s.ID, "2024-03-05", 1)

	res, err := env.advance.Advance(context.Background())
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Outcome != AdvanceLate {
		t.Errorf("outcome = %q, want late", res.Outcome)
	}
	if env.dispatcher.kinds()[notify.KindProblemLate] != len(testDests) {
		t.Errorf("intents = %v", env.dispatcher.kinds())
	}
	season, _ := env.store.Seasons.FindByID(context.Background(), nil, s.ID)
	if season.LatestPotd != nil {
		t.Error("late advance must not move latest_potd")
	}
}

func TestAdvancePostsTodaysProblem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.season(t, "S", true)
	first := env.problem(t, s.ID, "2024-03-01", 1)
	env.problem(t, s.ID, "2024-03-01", 2)
	env.problem(t, s.ID, "2024-03-02", 3)

	env.session.BumpCooldown(42)

	res, err := env.advance.Advance(ctx)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Outcome != AdvancePosted || res.ProblemID != first.ID {
		t.Errorf("result = %+v, want posted problem %d", res, first.ID)
	}

	season, _ := env.store.Seasons.FindByID(ctx, nil, s.ID)
	if season.LatestPotd == nil || *season.LatestPotd != first.ID {
		t.Errorf("latest_potd = %v", season.LatestPotd)
	}
	p, _ := env.store.Problems.FindByID(ctx, nil, first.ID)
	if !p.Public || p.BasePoints != 100 {
		t.Errorf("posted problem = %+v", p)
	}
	if err := env.session.CheckCooldown(42); err != nil {
		t.Errorf("cooldowns not cleared: %v", err)
	}

	kinds := env.dispatcher.kinds()
	if kinds[notify.KindProblemPosted] != 1 || kinds[notify.KindClearSolved] != 1 {
		t.Errorf("intents = %v", kinds)
	}
	for _, in := range env.dispatcher.intents {
		if in.Kind == notify.KindClearSolved && (len(in.ExemptUserIDs) != 1 || in.ExemptUserIDs[0] != 999) {
			t.Errorf("clear_solved should exempt admins, got %v", in.ExemptUserIDs)
		}
	}
}

func TestAdvanceUsesConfiguredTimezone(t *testing.T) {
	env := newTestEnv(t)
	loc := time.FixedZone("UTC+14", 14*60*60)
	env.advance = NewAdvanceService(env.store, env.session, env.scoring, env.dispatcher, nil, testDests, loc, nil)
	s := env.season(t, "S", true)
	// 12:00 UTC on March 1st is already March 2nd at UTC+14.
	next := env.problem(t, s.ID, "2024-03-02", 1)

	res, err := env.advance.Advance(context.Background())
	if err != nil || res.ProblemID != next.ID {
		t.Errorf("Advance = %+v, %v; want problem %d", res, err, next.ID)
	}
}

func TestAdvanceRejectsReentry(t *testing.T) {
	env := newTestEnv(t)
	env.session.TryBeginPosting()
	if _, err := env.advance.Advance(context.Background()); !errors.Is(err, common.ErrAdvanceInProgress) {
		t.Errorf("error = %v, want ErrAdvanceInProgress", err)
	}
	env.session.EndPosting()
}

type stubLock struct {
	held     bool
	released int
}

func (l *stubLock) Acquire(context.Context) (string, bool, error) {
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token", true, nil
}

func (l *stubLock) Release(_ context.Context, token string) (bool, error) {
	l.released++
	l.held = false
	return token == "token", nil
}

func TestAdvanceHonoursCrossProcessLock(t *testing.T) {
	env := newTestEnv(t)
	lock := &stubLock{}
	env.advance = NewAdvanceService(env.store, env.session, env.scoring, env.dispatcher, lock, testDests, time.UTC, nil)

	if _, err := env.advance.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if lock.released != 1 {
		t.Errorf("lock released %d times, want 1", lock.released)
	}

	lock.held = true
	if _, err := env.advance.Advance(context.Background()); !errors.Is(err, common.ErrAdvanceInProgress) {
		t.Errorf("error with foreign lock = %v", err)
	}
	if env.advance.Status() {
		t.Error("posting flag left on after lock refusal")
	}
}
