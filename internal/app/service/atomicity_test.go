package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"sync"
	"testing"

	"potd_engine/internal/app/notify"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
)

// flakyRankings fails every Upsert while broken is set.
type flakyRankings struct {
	repository.RankingRepository
	mu     sync.Mutex
	broken bool
}

func (r *flakyRankings) setBroken(b bool) {
	r.mu.Lock()
	r.broken = b
	r.mu.Unlock()
}

func (r *flakyRankings) Upsert(ctx context.Context, tx *sql.Tx, rankings []model.Ranking) error {
	r.mu.Lock()
	broken := r.broken
	r.mu.Unlock()
	if broken {
		return errors.New("disk full")
	}
	return r.RankingRepository.Upsert(ctx, tx, rankings)
}

func breakRankings(env *testEnv) *flakyRankings {
	f := &flakyRankings{RankingRepository: env.store.Rankings, broken: true}
	env.store.Rankings = f
	return f
}

func TestAdvanceStoreFailureLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.season(t, "S", true)
	p := env.problem(t, s.ID, "2024-03-01", 1)
	env.session.BumpCooldown(42)
	flaky := breakRankings(env)

	if _, err := env.advance.Advance(ctx); !errors.Is(err, common.ErrStoreFailure) {
		t.Fatalf("Advance error = %v, want store failure", err)
	}
	season, _ := env.store.Seasons.FindByID(ctx, nil, s.ID)
	if season.LatestPotd != nil {
		t.Errorf("latest_potd = %d after failed advance", *season.LatestPotd)
	}
	stored, _ := env.store.Problems.FindByID(ctx, nil, p.ID)
	if stored.Public {
		t.Error("problem made public by failed advance")
	}
	if len(env.dispatcher.kinds()) != 0 {
		t.Errorf("failed advance dispatched %v", env.dispatcher.kinds())
	}
	if err := env.session.CheckCooldown(42); err == nil {
		t.Error("failed advance cleared cooldowns")
	}

	flaky.setBroken(false)
	res, err := env.advance.Advance(ctx)
	if err != nil || res.Outcome != AdvancePosted {
		t.Fatalf("retry Advance = %+v, %v", res, err)
	}
	if env.dispatcher.kinds()[notify.KindProblemPosted] != len(testDests) {
		t.Errorf("intents after retry = %v", env.dispatcher.kinds())
	}
}

func TestSubmitStoreFailureLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, p := env.livePotd(t, 5)
	flaky := breakRankings(env)

	if _, err := env.submit.Submit(ctx, 1, "5"); !errors.Is(err, common.ErrStoreFailure) {
		t.Fatalf("Submit error = %v, want store failure", err)
	}
	if n, _ := env.store.Submissions.CountAttempts(ctx, nil, 1, p.ID, true); n != 0 {
		t.Errorf("failed submit left %d attempts", n)
	}
	if _, err := env.store.Submissions.FindSolve(ctx, nil, 1, p.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("failed submit left a solve: %v", err)
	}
	if env.dispatcher.kinds()[notify.KindGrantSolved] != 0 {
		t.Error("failed submit granted the solved role")
	}

	// No cooldown was started and the retry counts as the first attempt.
	flaky.setBroken(false)
	res, err := env.submit.Submit(ctx, 1, "5")
	if err != nil || res.Outcome != model.OutcomeSolved || res.NumAttempts != 1 {
		t.Fatalf("retry Submit = %+v, %v", res, err)
	}
	if env.dispatcher.kinds()[notify.KindGrantSolved] == 0 {
		t.Error("successful retry did not grant the solved role")
	}
}

// movingSeasons replaces the current problem right before the second FindRunning call.
type movingSeasons struct {
	repository.SeasonRepository
	calls   int
	nextID  int64
	seasonS int64
}

func (r *movingSeasons) FindRunning(ctx context.Context, tx *sql.Tx) (*model.Season, error) {
	r.calls++
	if r.calls == 2 {
		if err := r.SeasonRepository.SetLatestPotd(ctx, tx, r.seasonS, r.nextID); err != nil {
			return nil, err
		}
	}
	return r.SeasonRepository.FindRunning(ctx, tx)
}

func TestSubmitRejectsProblemReplacedMidway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, p := env.livePotd(t, 5)
	next := env.problem(t, s.ID, "2024-03-02", 6)
	env.store.Seasons = &movingSeasons{SeasonRepository: env.store.Seasons, nextID: next.ID, seasonS: s.ID}

	if _, err := env.submit.Submit(ctx, 1, "5"); !errors.Is(err, common.ErrProblemBeingPosted) {
		t.Fatalf("Submit error = %v, want problem being posted", err)
	}
	for _, id := range []int64{p.ID, next.ID} {
		if n, _ := env.store.Submissions.CountAttempts(ctx, nil, 1, id, true); n != 0 {
			t.Errorf("problem %d got %d attempts", id, n)
		}
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s, p := env.livePotd(t, 42)

	if _, err := env.submit.Submit(ctx, 1, "42"); err != nil {
		t.Fatal(err)
	}
	for _, answer := range []string{"1", "2", "42"} {
		if _, err := env.submit.Submit(ctx, 2, answer); err != nil {
			t.Fatal(err)
		}
		env.skipCooldown()
	}

	snapshot := func() ([]model.Ranking, *model.Problem) {
		if err := env.scoring.Recompute(ctx, s.ID); err != nil {
			t.Fatalf("Recompute: %v", err)
		}
		rankings, err := env.store.Rankings.ListBySeason(ctx, nil, s.ID)
		if err != nil {
			t.Fatal(err)
		}
		problem, err := env.store.Problems.FindByID(ctx, nil, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		return rankings, problem
	}

	r1, p1 := snapshot()
	r2, p2 := snapshot()
	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("rankings changed between recomputes:\n%+v\n%+v", r1, r2)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Errorf("problem cache changed between recomputes:\n%+v\n%+v", p1, p2)
	}
	if len(r1) != 2 || r1[0].UserID != 1 || r1[0].Score <= r1[1].Score {
		t.Errorf("rankings = %+v", r1)
	}
}
