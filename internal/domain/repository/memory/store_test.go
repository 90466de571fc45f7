package memory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
)

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	season := &model.Season{Name: "S", Slug: "s"}
	if err := store.Seasons.Create(ctx, nil, season); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := store.Seasons.SetRunning(ctx, tx, season.ID, true); err != nil {
			return err
		}
		if err := store.Rankings.Ensure(ctx, tx, season.ID, 7); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx error = %v", err)
	}

	got, _ := store.Seasons.FindByID(ctx, nil, season.ID)
	if got.Running {
		t.Error("season still running after rollback")
	}
	rankings, _ := store.Rankings.ListBySeason(ctx, nil, season.ID)
	if len(rankings) != 0 {
		t.Errorf("rankings after rollback = %+v", rankings)
	}
}

func TestSolvesAreUniquePerUserAndProblem(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	season := &model.Season{Name: "S", Slug: "s"}
	_ = store.Seasons.Create(ctx, nil, season)
	p := &model.Problem{SeasonID: season.ID, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Answer: 1}
	if err := store.Problems.Create(ctx, nil, p); err != nil {
		t.Fatal(err)
	}

	created, err := store.Submissions.CreateSolve(ctx, nil, &model.Solve{UserID: 1, ProblemID: p.ID, NumAttempts: 1, Official: true})
	if err != nil || !created {
		t.Fatalf("first CreateSolve = %v, %v", created, err)
	}
	created, err = store.Submissions.CreateSolve(ctx, nil, &model.Solve{UserID: 1, ProblemID: p.ID, NumAttempts: 2})
	if err != nil || created {
		t.Errorf("duplicate CreateSolve = %v, %v", created, err)
	}
	if _, err := store.Submissions.FindSolve(ctx, nil, 2, p.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("FindSolve for unsolved user error = %v", err)
	}
}

func TestOnlyOneRunningSeason(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	a := &model.Season{Name: "A", Slug: "a"}
	b := &model.Season{Name: "B", Slug: "b"}
	_ = store.Seasons.Create(ctx, nil, a)
	_ = store.Seasons.Create(ctx, nil, b)

	if err := store.Seasons.SetRunning(ctx, nil, a.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := store.Seasons.SetRunning(ctx, nil, b.ID, true); !errors.Is(err, common.ErrSeasonAlreadyRunning) {
		t.Errorf("second running season error = %v", err)
	}
	running, err := store.Seasons.FindRunning(ctx, nil)
	if err != nil || running == nil || running.ID != a.ID {
		t.Errorf("FindRunning = %+v, %v", running, err)
	}
}

func TestRunInTxRollsBackWhenContextEnds(t *testing.T) {
	store := NewStore()
	season := &model.Season{Name: "S", Slug: "s"}
	if err := store.Seasons.Create(context.Background(), nil, season); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := store.Seasons.SetRunning(ctx, tx, season.ID, true); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunInTx error = %v, want context.Canceled", err)
	}
	got, _ := store.Seasons.FindByID(context.Background(), nil, season.ID)
	if got.Running {
		t.Error("writes of a cancelled transaction were kept")
	}
}
