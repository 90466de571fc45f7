package worker

import (
	"context"
	"errors"
	"time"

	"potd_engine/internal/app/service"
	"potd_engine/internal/common"
	"potd_engine/internal/platform/logger"

	"go.uber.org/zap"
)

// Advancer is the part of the advance service the scheduler drives.
type Advancer interface {
	Advance(ctx context.Context) (*service.AdvanceResult, error)
}

// Scheduler runs an advancement every day at a fixed wall-clock time.
type Scheduler struct {
	advancer Advancer
	location *time.Location
	hour     int
	minute   int
	now      func() time.Time
}

func NewScheduler(advancer Advancer, location *time.Location, hour, minute int) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{advancer: advancer, location: location, hour: hour, minute: minute, now: time.Now}
}

// NextRun is the first hour:minute in loc strictly after now.
func NextRun(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		next := NextRun(s.now(), s.location, s.hour, s.minute)
		logger.Log.Info("Next advancement scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Log.Info("Scheduler stopping")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one advancement and logs the result.
func (s *Scheduler) RunOnce(ctx context.Context) {
	res, err := s.advancer.Advance(ctx)
	if err != nil {
		if errors.Is(err, common.ErrAdvanceInProgress) {
			logger.Log.Warn("Scheduled advancement skipped, another run is in progress")
			return
		}
		logger.Log.Error("Scheduled advancement failed", zap.Error(err))
		return
	}
	logger.Log.Info("Scheduled advancement finished",
		zap.String("outcome", string(res.Outcome)), zap.Int64("season_id", res.SeasonID), zap.Int64("problem_id", res.ProblemID))
}
