// Package elo holds the pairwise rating math used for problem difficulty and quality.
package elo

import (
	"math"

	"potd_engine/internal/domain/model"
)

// KFactor shrinks from 110 towards 10 as a problem collects judgments.
func KFactor(judgments int) float64 {
	return 10 + 100*math.Pow(10, -float64(judgments)/20)
}

// Expected is the logistic win expectation of a rating against b.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// Scores returns the actual results of problem 1 and problem 2 for a choice.
// ok is false for ChoiceUndecide, which never moves ratings.
func Scores(c model.Choice) (s1, s2 float64, ok bool) {
	switch c {
	case model.ChoiceFirst:
		return 1, 0, true
	case model.ChoiceSecond:
		return 0, 1, true
	case model.ChoiceNeutral:
		return 0.5, 0.5, true
	}
	return 0, 0, false
}

// Update applies one judgment. n1 and n2 are the prior judgment counts of each side.
func Update(r1, r2 float64, n1, n2 int, c model.Choice) (model.RatingChange, model.RatingChange, bool) {
	s1, s2, ok := Scores(c)
	k1, k2 := KFactor(n1), KFactor(n2)
	c1 := model.RatingChange{Old: r1, New: r1, KFactor: k1}
	c2 := model.RatingChange{Old: r2, New: r2, KFactor: k2}
	if !ok {
		return c1, c2, false
	}
	c1.New = r1 + k1*(s1-Expected(r1, r2))
	c2.New = r2 + k2*(s2-Expected(r2, r1))
	return c1, c2, true
}
