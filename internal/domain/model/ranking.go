package model

type Ranking struct {
	SeasonID int64   `json:"season_id"`
	UserID   int64   `json:"user_id"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      int64   `json:"user_id,omitempty"` // zero for anonymous users
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	Medal       Medal   `json:"medal,omitempty"`
}
