package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/domain/scoring"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"

	"go.uber.org/zap"
)

type ScoringService struct {
	store      *repository.Store
	basePoints float64
	weight     scoring.WeightFunc
}

func NewScoringService(store *repository.Store, basePoints float64, weight scoring.WeightFunc) *ScoringService {
	if weight == nil {
		weight = scoring.DefaultWeight
	}
	return &ScoringService{store: store, basePoints: basePoints, weight: weight}
}

// Recompute regenerates every problem cache and ranking row of a season in one transaction.
func (s *ScoringService) Recompute(ctx context.Context, seasonID int64) error {
	err := s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.RecomputeTx(ctx, tx, seasonID)
	})
	if err != nil {
		logger.Log.Error("season recompute failed", zap.Int64("season_id", seasonID), zap.Error(err))
		return common.StoreError("recompute season", err)
	}
	return nil
}

// RecomputeTx does the work of Recompute inside a caller's transaction.
func (s *ScoringService) RecomputeTx(ctx context.Context, tx *sql.Tx, seasonID int64) error {
	start := time.Now()
	defer func() { monitoring.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	problemIDs, err := s.store.Problems.ListIDsBySeason(ctx, tx, seasonID)
	if err != nil {
		return err
	}
	existing, err := s.store.Rankings.ListBySeason(ctx, tx, seasonID)
	if err != nil {
		return err
	}
	participants := make([]int64, 0, len(existing))
	for _, r := range existing {
		participants = append(participants, r.UserID)
	}
	solves, err := s.store.Submissions.ListOfficialSolvesBySeason(ctx, tx, seasonID)
	if err != nil {
		return err
	}

	res := scoring.Compute(seasonID, s.basePoints, s.weight, problemIDs, participants, solves)

	if err := s.store.Problems.UpdateStats(ctx, tx, res.Problems); err != nil {
		return fmt.Errorf("persist problem stats: %w", err)
	}
	if err := s.store.Rankings.Upsert(ctx, tx, res.Rankings); err != nil {
		return fmt.Errorf("persist rankings: %w", err)
	}
	logger.Log.Debug("season recomputed",
		zap.Int64("season_id", seasonID), zap.Int("problems", len(res.Problems)), zap.Int("rankings", len(res.Rankings)))
	return nil
}
