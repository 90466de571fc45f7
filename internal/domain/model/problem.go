package model

import (
	"time"

	"potd_engine/internal/common"
)

const (
	DefaultRating = 1500.0
	DateLayout    = "2006-01-02"
)

type Problem struct {
	ID               int64     `json:"id"`
	SeasonID         int64     `json:"season_id"`
	Date             time.Time `json:"date"` // midnight UTC of the calendar day
	Statement        string    `json:"statement"`
	Answer           int64     `json:"-"` // never exposed
	Public           bool      `json:"public"`
	DifficultyRating float64   `json:"difficulty_rating"`
	QualityRating    float64   `json:"quality_rating"`
	WeightedSolves   float64   `json:"weighted_solves"`
	BasePoints       float64   `json:"base_points"`
	CreatedAt        time.Time `json:"created_at"`
	ImageIDs         []int64   `json:"image_ids,omitempty"` // For display
}

// Rating returns the rating field selected by t.
func (p *Problem) Rating(t RatingType) float64 {
	if t == RatingDifficulty {
		return p.DifficultyRating
	}
	return p.QualityRating
}

// ProblemUpdate lists the fields an administrator may change. Nil means unchanged.
type ProblemUpdate struct {
	SeasonID  *int64     `json:"season_id,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Statement *string    `json:"statement,omitempty"`
	Answer    *int64     `json:"answer,omitempty"`
	Public    *bool      `json:"public,omitempty"`
}

func (u ProblemUpdate) IsEmpty() bool {
	return u.SeasonID == nil && u.Date == nil && u.Statement == nil && u.Answer == nil && u.Public == nil
}

func (u ProblemUpdate) Apply(p *Problem) {
	if u.SeasonID != nil {
		p.SeasonID = *u.SeasonID
	}
	if u.Date != nil {
		p.Date = *u.Date
	}
	if u.Statement != nil {
		p.Statement = *u.Statement
	}
	if u.Answer != nil {
		p.Answer = *u.Answer
	}
	if u.Public != nil {
		p.Public = *u.Public
	}
}

// ProblemStats are the cached scoring outputs stored on a problem.
type ProblemStats struct {
	ProblemID      int64
	WeightedSolves float64
	BasePoints     float64
}

type ProblemImage struct {
	ID          int64     `json:"id"`
	ProblemID   int64     `json:"problem_id"`
	ContentType string    `json:"content_type"`
	ObjectKey   string    `json:"-"` // set when the bytes live in an object store
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, common.ErrInvalidDate
	}
	return t, nil
}
