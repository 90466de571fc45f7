package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"potd_engine/internal/app/competition"
	"potd_engine/internal/app/notify"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"

	"go.uber.org/zap"
)

type SubmissionService struct {
	store      *repository.Store
	session    *competition.Session
	scoring    *ScoringService
	problems   *ProblemService
	dispatcher notify.Dispatcher
	dests      []model.Destination
}

func NewSubmissionService(
	store *repository.Store,
	session *competition.Session,
	scoring *ScoringService,
	problems *ProblemService,
	dispatcher notify.Dispatcher,
	dests []model.Destination,
) *SubmissionService {
	return &SubmissionService{
		store:      store,
		session:    session,
		scoring:    scoring,
		problems:   problems,
		dispatcher: dispatcher,
		dests:      dests,
	}
}

// ParseAnswer accepts a base-10 integer with an optional sign, surrounded by whitespace.
func ParseAnswer(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, common.ErrAnswerOutOfRange
		}
		return 0, common.ErrInvalidAnswerFormat
	}
	return v, nil
}

// Submit records an official answer to the running season's current problem.
func (s *SubmissionService) Submit(ctx context.Context, userID int64, raw string) (*model.SubmissionResult, error) {
	answer, err := ParseAnswer(raw)
	if err != nil {
		return nil, err
	}
	if s.session.IsPosting() {
		return nil, common.ErrProblemBeingPosted
	}

	season, err := s.store.Seasons.FindRunning(ctx, nil)
	if err != nil {
		return nil, common.StoreError("find running season", err)
	}
	if season == nil || season.LatestPotd == nil {
		return nil, common.ErrNoActiveProblem
	}
	if err := s.session.CheckCooldown(userID); err != nil {
		return nil, err
	}
	problem, err := s.store.Problems.FindByID(ctx, nil, *season.LatestPotd)
	if err != nil {
		return nil, common.StoreError("find current problem", err)
	}

	if err := s.ensureParticipant(ctx, season.ID, userID); err != nil {
		return nil, err
	}

	_, err = s.store.Submissions.FindSolve(ctx, nil, userID, problem.ID)
	if err == nil {
		return nil, common.ErrAlreadySolved
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, common.StoreError("check existing solve", err)
	}

	result := &model.SubmissionResult{Outcome: model.OutcomeIncorrect, ProblemID: problem.ID, Official: true}
	err = s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		// An advancement may have replaced the current problem since the checks above.
		current, err := s.store.Seasons.FindRunning(ctx, tx)
		if err != nil {
			return err
		}
		if current == nil || current.ID != season.ID || current.LatestPotd == nil || *current.LatestPotd != problem.ID {
			return common.ErrProblemBeingPosted
		}

		attempt := &model.Attempt{UserID: userID, ProblemID: problem.ID, Official: true, Submission: answer}
		if err := s.store.Submissions.CreateAttempt(ctx, tx, attempt); err != nil {
			return err
		}
		n, err := s.store.Submissions.CountAttempts(ctx, tx, userID, problem.ID, true)
		if err != nil {
			return err
		}
		result.NumAttempts = n

		if answer == problem.Answer {
			created, err := s.store.Submissions.CreateSolve(ctx, tx, &model.Solve{
				UserID: userID, ProblemID: problem.ID, NumAttempts: n, Official: true,
			})
			if err != nil {
				return err
			}
			if !created {
				// A concurrent submission won the race.
				return common.ErrAlreadySolved
			}
			result.Outcome = model.OutcomeSolved
		}
		return s.scoring.RecomputeTx(ctx, tx, season.ID)
	})
	if err != nil {
		return nil, common.StoreError("record submission", err)
	}

	s.session.BumpCooldown(userID)
	monitoring.SubmissionsTotal.WithLabelValues("true", string(result.Outcome)).Inc()
	logger.Log.Info("official submission recorded",
		zap.Int64("user_id", userID), zap.Int64("problem_id", problem.ID),
		zap.String("outcome", string(result.Outcome)), zap.Int("attempts", result.NumAttempts))

	if result.Outcome == model.OutcomeSolved {
		s.dispatch(ctx, notify.GrantSolvedIntents(s.dests, userID, problem.ID))
	}
	return result, nil
}

// CheckUnofficial records a practice answer to any public problem that is not the live one.
func (s *SubmissionService) CheckUnofficial(ctx context.Context, userID int64, ref model.ProblemRef, raw string) (*model.SubmissionResult, error) {
	answer, err := ParseAnswer(raw)
	if err != nil {
		return nil, err
	}
	problem, err := s.problems.Resolve(ctx, ref, true)
	if err != nil {
		return nil, err
	}

	season, err := s.store.Seasons.FindRunning(ctx, nil)
	if err != nil {
		return nil, common.StoreError("find running season", err)
	}
	if season != nil && season.LatestPotd != nil && *season.LatestPotd == problem.ID {
		return nil, common.ErrProblemIsCurrentSeasonItem
	}

	if _, err := s.store.Users.Ensure(ctx, nil, userID); err != nil {
		return nil, common.StoreError("register user", err)
	}

	result := &model.SubmissionResult{Outcome: model.OutcomeIncorrect, ProblemID: problem.ID, Official: false}
	err = s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		attempt := &model.Attempt{UserID: userID, ProblemID: problem.ID, Official: false, Submission: answer}
		if err := s.store.Submissions.CreateAttempt(ctx, tx, attempt); err != nil {
			return err
		}
		n, err := s.store.Submissions.CountAttempts(ctx, tx, userID, problem.ID, false)
		if err != nil {
			return err
		}
		result.NumAttempts = n

		if answer != problem.Answer {
			return nil
		}
		created, err := s.store.Submissions.CreateSolve(ctx, tx, &model.Solve{
			UserID: userID, ProblemID: problem.ID, NumAttempts: n, Official: false,
		})
		if err != nil {
			return err
		}
		if created {
			result.Outcome = model.OutcomeSolved
		} else {
			result.Outcome = model.OutcomeSolvedBefore
		}
		return nil
	})
	if err != nil {
		return nil, common.StoreError("record unofficial submission", err)
	}

	monitoring.SubmissionsTotal.WithLabelValues("false", string(result.Outcome)).Inc()
	return result, nil
}

func (s *SubmissionService) ensureParticipant(ctx context.Context, seasonID, userID int64) error {
	err := s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.store.Users.Ensure(ctx, tx, userID); err != nil {
			return err
		}
		return s.store.Rankings.Ensure(ctx, tx, seasonID, userID)
	})
	return common.StoreError("register participant", err)
}

func (s *SubmissionService) dispatch(ctx context.Context, intents []notify.Intent) {
	if err := s.dispatcher.Dispatch(ctx, intents...); err != nil {
		logger.Log.Error("failed to dispatch notifications", zap.Int("count", len(intents)), zap.Error(err))
	}
}
