// Package scoring turns a season's official solves into point values and rankings.
package scoring

import (
	"math"
	"sort"

	"potd_engine/internal/domain/model"
)

// WeightFunc maps the attempt number of a solve (1-based) to its weight.
type WeightFunc func(attempts int) float64

// DefaultWeight is 0.9^(a-1): a first-try solve counts fully, each retry 10% less.
func DefaultWeight(attempts int) float64 {
	return math.Pow(0.9, float64(attempts-1))
}

type Result struct {
	Problems []model.ProblemStats
	Rankings []model.Ranking
}

// Compute scores a season. solves must be the season's official solves; problemIDs and
// participants list every problem and user that need a row even without solves.
func Compute(seasonID int64, basePoints float64, weight WeightFunc, problemIDs []int64, participants []int64, solves []model.Solve) Result {
	if weight == nil {
		weight = DefaultWeight
	}

	totals := make(map[int64]float64, len(problemIDs))
	for _, id := range problemIDs {
		totals[id] = 0
	}
	for _, s := range solves {
		totals[s.ProblemID] += weight(s.NumAttempts)
	}

	pointValue := make(map[int64]float64, len(totals))
	stats := make([]model.ProblemStats, 0, len(totals))
	for id, total := range totals {
		st := model.ProblemStats{ProblemID: id, WeightedSolves: total, BasePoints: basePoints}
		if total > 0 {
			st.BasePoints = basePoints / total
			pointValue[id] = st.BasePoints
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ProblemID < stats[j].ProblemID })

	scores := make(map[int64]float64, len(participants))
	for _, u := range participants {
		scores[u] = 0
	}
	for _, s := range solves {
		scores[s.UserID] += pointValue[s.ProblemID] * weight(s.NumAttempts)
	}

	rankings := make([]model.Ranking, 0, len(scores))
	for u, score := range scores {
		rankings = append(rankings, model.Ranking{SeasonID: seasonID, UserID: u, Score: score})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].UserID < rankings[j].UserID
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	return Result{Problems: stats, Rankings: rankings}
}
