package service

import (
	"context"
	"database/sql"
	"time"

	"potd_engine/internal/app/competition"
	"potd_engine/internal/app/notify"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"

	"go.uber.org/zap"
)

type AdvanceOutcome string

const (
	AdvancePosted   AdvanceOutcome = "posted"
	AdvanceLate     AdvanceOutcome = "late"
	AdvanceNoSeason AdvanceOutcome = "no_season"
)

type AdvanceResult struct {
	Outcome   AdvanceOutcome `json:"outcome"`
	SeasonID  int64          `json:"season_id,omitempty"`
	ProblemID int64          `json:"problem_id,omitempty"`
}

// AdvanceLock excludes advancement runs in other processes.
type AdvanceLock interface {
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) (bool, error)
}

type AdvanceService struct {
	store      *repository.Store
	session    *competition.Session
	scoring    *ScoringService
	dispatcher notify.Dispatcher
	lock       AdvanceLock // optional
	dests      []model.Destination
	location   *time.Location
	adminIDs   []int64
}

func NewAdvanceService(
	store *repository.Store,
	session *competition.Session,
	scoring *ScoringService,
	dispatcher notify.Dispatcher,
	lock AdvanceLock,
	dests []model.Destination,
	location *time.Location,
	adminIDs []int64,
) *AdvanceService {
	if location == nil {
		location = time.UTC
	}
	return &AdvanceService{
		store:      store,
		session:    session,
		scoring:    scoring,
		dispatcher: dispatcher,
		lock:       lock,
		dests:      dests,
		location:   location,
		adminIDs:   adminIDs,
	}
}

// Status reports whether an advancement is running in this process.
func (s *AdvanceService) Status() bool {
	return s.session.IsPosting()
}

// Advance publishes today's problem of the running season, if there is one.
func (s *AdvanceService) Advance(ctx context.Context) (*AdvanceResult, error) {
	if !s.session.TryBeginPosting() {
		return nil, common.ErrAdvanceInProgress
	}
	defer s.session.EndPosting()

	if s.lock != nil {
		token, ok, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, common.StoreError("acquire advance lock", err)
		}
		if !ok {
			return nil, common.ErrAdvanceInProgress
		}
		defer func() {
			// The run may have cancelled ctx.
			released, err := s.lock.Release(context.Background(), token)
			if err != nil {
				logger.Log.Error("failed to release advance lock", zap.Error(err))
			} else if !released {
				logger.Log.Warn("advance lock expired before release")
			}
		}()
	}

	result, err := s.advance(ctx)
	if err != nil {
		monitoring.AdvancementsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	monitoring.AdvancementsTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

func (s *AdvanceService) advance(ctx context.Context) (*AdvanceResult, error) {
	season, err := s.store.Seasons.FindRunning(ctx, nil)
	if err != nil {
		return nil, common.StoreError("find running season", err)
	}
	if season == nil {
		logger.Log.Info("no running season, nothing to advance")
		return &AdvanceResult{Outcome: AdvanceNoSeason}, nil
	}

	today := model.DateOf(s.session.Now().In(s.location))
	candidates, err := s.store.Problems.FindBySeasonAndDate(ctx, nil, season.ID, today)
	if err != nil {
		return nil, common.StoreError("find today's problem", err)
	}
	if len(candidates) == 0 {
		logger.Log.Warn("no problem scheduled for today",
			zap.Int64("season_id", season.ID), zap.String("date", today.Format(model.DateLayout)))
		s.dispatch(ctx, notify.LateIntents(s.dests))
		return &AdvanceResult{Outcome: AdvanceLate, SeasonID: season.ID}, nil
	}
	if len(candidates) > 1 {
		logger.Log.Warn("several problems share today's date, posting the lowest id",
			zap.Int64("season_id", season.ID), zap.Int("count", len(candidates)))
	}
	problem := candidates[0]

	err = s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.store.Seasons.SetLatestPotd(ctx, tx, season.ID, problem.ID); err != nil {
			return err
		}
		if err := s.store.Problems.SetPublic(ctx, tx, problem.ID, true); err != nil {
			return err
		}
		return s.scoring.RecomputeTx(ctx, tx, season.ID)
	})
	if err != nil {
		return nil, common.StoreError("publish problem", err)
	}
	problem.Public = true
	s.session.ClearCooldowns()

	imageIDs, err := s.store.Problems.ListImageIDs(ctx, problem.ID)
	if err != nil {
		// The problem is already live; post it without images.
		logger.Log.Error("failed to list images for posted problem", zap.Int64("problem_id", problem.ID), zap.Error(err))
	}
	intents := notify.PostedIntents(s.dests, &problem, imageIDs)
	intents = append(intents, notify.ClearSolvedIntents(s.dests, s.adminIDs)...)
	s.dispatch(ctx, intents)

	logger.Log.Info("problem of the day posted", zap.Int64("season_id", season.ID), zap.Int64("problem_id", problem.ID))
	return &AdvanceResult{Outcome: AdvancePosted, SeasonID: season.ID, ProblemID: problem.ID}, nil
}

func (s *AdvanceService) dispatch(ctx context.Context, intents []notify.Intent) {
	if err := s.dispatcher.Dispatch(ctx, intents...); err != nil {
		logger.Log.Error("failed to dispatch notifications", zap.Int("count", len(intents)), zap.Error(err))
	}
}
