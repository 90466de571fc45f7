package model

import "time"

type RatingType string

const (
	RatingDifficulty RatingType = "DIFF"
	RatingQuality    RatingType = "COOL"
)

func (t RatingType) Valid() bool {
	return t == RatingDifficulty || t == RatingQuality
}

type Choice string

const (
	ChoiceFirst    Choice = "1"
	ChoiceSecond   Choice = "2"
	ChoiceNeutral  Choice = "n" // equally hard / equally nice
	ChoiceUndecide Choice = "d" // can't decide, recorded only
)

func (c Choice) Valid() bool {
	switch c {
	case ChoiceFirst, ChoiceSecond, ChoiceNeutral, ChoiceUndecide:
		return true
	}
	return false
}

// RatingChoice is the audit row of one pairwise judgment.
type RatingChoice struct {
	ID         int64      `json:"id"`
	Problem1ID int64      `json:"problem_1_id"`
	Problem2ID int64      `json:"problem_2_id"`
	Choice     Choice     `json:"choice"`
	Type       RatingType `json:"type"`
	RaterID    int64      `json:"rater_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

type PendingPair struct {
	Problem1ID int64      `json:"problem_1_id"`
	Problem2ID int64      `json:"problem_2_id"`
	Type       RatingType `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
}

type RatingChange struct {
	ProblemID int64   `json:"problem_id"`
	Old       float64 `json:"old"`
	New       float64 `json:"new"`
	KFactor   float64 `json:"k_factor"`
}

type RatingDelta struct {
	Type     RatingType   `json:"type"`
	Choice   Choice       `json:"choice"`
	Updated  bool         `json:"updated"`
	Problem1 RatingChange `json:"problem_1"`
	Problem2 RatingChange `json:"problem_2"`
}
