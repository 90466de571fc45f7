package scoring

import (
	"math"
	"testing"

	"potd_engine/internal/domain/model"
)

const eps = 1e-9

func almostEqual(a, b float64) bool { return math.Abs(a-b) < eps }

func TestDefaultWeight(t *testing.T) {
	if got := DefaultWeight(1); got != 1 {
		t.Fatalf("DefaultWeight(1) = %v, want 1", got)
	}
	prev := DefaultWeight(1)
	for a := 2; a <= 50; a++ {
		w := DefaultWeight(a)
		if w <= 0 || w >= prev {
			t.Fatalf("DefaultWeight(%d) = %v, want in (0, %v)", a, w, prev)
		}
		prev = w
	}
	if !almostEqual(DefaultWeight(2), 0.9) {
		t.Errorf("DefaultWeight(2) = %v, want 0.9", DefaultWeight(2))
	}
}

func TestComputeSingleSolveEarnsBasePoints(t *testing.T) {
	solves := []model.Solve{{UserID: 7, ProblemID: 1, NumAttempts: 4, Official: true}}
	res := Compute(1, 100, nil, []int64{1}, []int64{7}, solves)

	if len(res.Rankings) != 1 {
		t.Fatalf("got %d rankings, want 1", len(res.Rankings))
	}
	if !almostEqual(res.Rankings[0].Score, 100) {
		t.Errorf("score = %v, want 100", res.Rankings[0].Score)
	}
	if res.Rankings[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", res.Rankings[0].Rank)
	}
}

func TestComputeTwoSolvers(t *testing.T) {
	solves := []model.Solve{
		{UserID: 1, ProblemID: 10, NumAttempts: 1, Official: true},
		{UserID: 2, ProblemID: 10, NumAttempts: 3, Official: true},
	}
	res := Compute(1, 100, nil, []int64{10}, nil, solves)

	if len(res.Problems) != 1 {
		t.Fatalf("got %d problem stats, want 1", len(res.Problems))
	}
	if !almostEqual(res.Problems[0].WeightedSolves, 1.81) {
		t.Errorf("weighted solves = %v, want 1.81", res.Problems[0].WeightedSolves)
	}
	wantPoint := 100 / 1.81
	if !almostEqual(res.Problems[0].BasePoints, wantPoint) {
		t.Errorf("point value = %v, want %v", res.Problems[0].BasePoints, wantPoint)
	}

	if res.Rankings[0].UserID != 1 || res.Rankings[1].UserID != 2 {
		t.Fatalf("unexpected order: %+v", res.Rankings)
	}
	if math.Abs(res.Rankings[0].Score-55.25) > 0.01 {
		t.Errorf("user 1 score = %v, want ~55.25", res.Rankings[0].Score)
	}
	if math.Abs(res.Rankings[1].Score-44.75) > 0.01 {
		t.Errorf("user 2 score = %v, want ~44.75", res.Rankings[1].Score)
	}
	if !almostEqual(res.Rankings[0].Score+res.Rankings[1].Score, 100) {
		t.Errorf("scores do not sum to base points: %+v", res.Rankings)
	}
}

func TestComputeZeroSolveProblemAndIdleParticipant(t *testing.T) {
	solves := []model.Solve{{UserID: 1, ProblemID: 10, NumAttempts: 1, Official: true}}
	res := Compute(3, 100, nil, []int64{10, 11}, []int64{1, 5}, solves)

	var unsolved *model.ProblemStats
	for i := range res.Problems {
		if res.Problems[i].ProblemID == 11 {
			unsolved = &res.Problems[i]
		}
	}
	if unsolved == nil {
		t.Fatal("missing stats for unsolved problem")
	}
	if unsolved.WeightedSolves != 0 || unsolved.BasePoints != 100 {
		t.Errorf("unsolved stats = %+v, want weighted 0 and base 100", *unsolved)
	}

	if len(res.Rankings) != 2 {
		t.Fatalf("got %d rankings, want 2", len(res.Rankings))
	}
	idle := res.Rankings[1]
	if idle.UserID != 5 || idle.Score != 0 || idle.Rank != 2 || idle.SeasonID != 3 {
		t.Errorf("idle participant = %+v", idle)
	}
}

func TestComputeTieBreaksByUserID(t *testing.T) {
	solves := []model.Solve{
		{UserID: 9, ProblemID: 1, NumAttempts: 1, Official: true},
		{UserID: 4, ProblemID: 1, NumAttempts: 1, Official: true},
	}
	res := Compute(1, 100, nil, []int64{1}, []int64{9, 4}, solves)
	if res.Rankings[0].UserID != 4 || res.Rankings[1].UserID != 9 {
		t.Errorf("tie order = %+v, want user 4 first", res.Rankings)
	}
	if res.Rankings[0].Rank != 1 || res.Rankings[1].Rank != 2 {
		t.Errorf("ranks = %d, %d, want 1, 2", res.Rankings[0].Rank, res.Rankings[1].Rank)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	solves := []model.Solve{
		{UserID: 1, ProblemID: 1, NumAttempts: 2, Official: true},
		{UserID: 2, ProblemID: 1, NumAttempts: 1, Official: true},
		{UserID: 2, ProblemID: 2, NumAttempts: 5, Official: true},
		{UserID: 3, ProblemID: 2, NumAttempts: 1, Official: true},
	}
	first := Compute(1, 100, nil, []int64{1, 2}, []int64{1, 2, 3, 4}, solves)
	second := Compute(1, 100, nil, []int64{1, 2}, []int64{1, 2, 3, 4}, solves)

	if len(first.Rankings) != len(second.Rankings) {
		t.Fatal("ranking length differs between runs")
	}
	for i := range first.Rankings {
		if first.Rankings[i] != second.Rankings[i] {
			t.Errorf("ranking %d differs: %+v vs %+v", i, first.Rankings[i], second.Rankings[i])
		}
	}
}

func TestComputeCustomWeight(t *testing.T) {
	flat := func(int) float64 { return 1 }
	solves := []model.Solve{
		{UserID: 1, ProblemID: 1, NumAttempts: 1, Official: true},
		{UserID: 2, ProblemID: 1, NumAttempts: 9, Official: true},
	}
	res := Compute(1, 100, flat, []int64{1}, nil, solves)
	for _, rk := range res.Rankings {
		if !almostEqual(rk.Score, 50) {
			t.Errorf("user %d score = %v, want 50", rk.UserID, rk.Score)
		}
	}
}
