package model

import (
	"time"

	"potd_engine/internal/common"
)

type Season struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Running    bool      `json:"running"`
	LatestPotd *int64    `json:"latest_potd,omitempty"`
	Cutoffs    Cutoffs   `json:"cutoffs"`
	CreatedAt  time.Time `json:"created_at"`
}

type Medal string

const (
	MedalNone   Medal = ""
	MedalBronze Medal = "bronze"
	MedalSilver Medal = "silver"
	MedalGold   Medal = "gold"
)

// Cutoffs are the minimum scores for each medal; nil disables that medal.
type Cutoffs struct {
	Bronze *float64 `json:"bronze,omitempty"`
	Silver *float64 `json:"silver,omitempty"`
	Gold   *float64 `json:"gold,omitempty"`
}

func (c Cutoffs) Validate() error {
	set := make([]float64, 0, 3)
	for _, v := range []*float64{c.Bronze, c.Silver, c.Gold} {
		if v != nil {
			if *v < 0 {
				return common.ErrInvalidCutoffs
			}
			set = append(set, *v)
		}
	}
	for i := 1; i < len(set); i++ {
		if set[i] < set[i-1] {
			return common.ErrInvalidCutoffs
		}
	}
	return nil
}

func (c Cutoffs) Medal(score float64) Medal {
	switch {
	case c.Gold != nil && score >= *c.Gold:
		return MedalGold
	case c.Silver != nil && score >= *c.Silver:
		return MedalSilver
	case c.Bronze != nil && score >= *c.Bronze:
		return MedalBronze
	}
	return MedalNone
}
