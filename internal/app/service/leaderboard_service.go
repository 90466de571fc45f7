package service

import (
	"context"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
)

type LeaderboardService struct {
	store *repository.Store
}

func NewLeaderboardService(store *repository.Store) *LeaderboardService {
	return &LeaderboardService{store: store}
}

func (s *LeaderboardService) ListSeasons(ctx context.Context) ([]model.Season, error) {
	seasons, err := s.store.Seasons.List(ctx)
	if err != nil {
		return nil, common.StoreError("list seasons", err)
	}
	return seasons, nil
}

type Leaderboard struct {
	Season  *model.Season            `json:"season"`
	Entries []model.LeaderboardEntry `json:"entries"`
}

// Leaderboard projects the stored rankings. Anonymous users are shown without their id.
func (s *LeaderboardService) Leaderboard(ctx context.Context, seasonID int64) (*Leaderboard, error) {
	season, err := s.store.Seasons.FindByID(ctx, nil, seasonID)
	if err != nil {
		return nil, common.StoreError("find season", err)
	}
	rankings, err := s.store.Rankings.ListBySeason(ctx, nil, seasonID)
	if err != nil {
		return nil, common.StoreError("list rankings", err)
	}
	ids := make([]int64, 0, len(rankings))
	for _, r := range rankings {
		ids = append(ids, r.UserID)
	}
	users, err := s.store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, common.StoreError("find users", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(rankings))
	for _, r := range rankings {
		u, ok := users[r.UserID]
		if !ok {
			u = &model.User{ID: r.UserID, ReceiveMedals: true}
		}
		entry := model.LeaderboardEntry{Rank: r.Rank, DisplayName: u.DisplayName(), Score: r.Score}
		if !u.Anonymous {
			entry.UserID = u.ID
		}
		if u.ReceiveMedals {
			entry.Medal = season.Cutoffs.Medal(r.Score)
		}
		entries = append(entries, entry)
	}
	return &Leaderboard{Season: season, Entries: entries}, nil
}
