package service

import (
	"context"
	"database/sql"
	"math/rand/v2"

	"potd_engine/internal/app/competition"
	"potd_engine/internal/common"
	"potd_engine/internal/domain/elo"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/monitoring"

	"go.uber.org/zap"
)

type RatingService struct {
	store   *repository.Store
	session *competition.Session
}

func NewRatingService(store *repository.Store, session *competition.Session) *RatingService {
	return &RatingService{store: store, session: session}
}

// PairView is what a rater is shown: two problems they have solved.
type PairView struct {
	Type     model.RatingType `json:"type"`
	Problem1 *model.Problem   `json:"problem_1"`
	Problem2 *model.Problem   `json:"problem_2"`
}

func (s *RatingService) PickPair(ctx context.Context, userID int64, t model.RatingType) (*PairView, error) {
	if !t.Valid() {
		return nil, common.ErrInvalidRatingType
	}
	if _, ok := s.session.PendingPair(userID); ok {
		return nil, common.ErrJudgmentPending
	}

	solved, err := s.store.Submissions.ListSolvedProblemIDs(ctx, userID)
	if err != nil {
		return nil, common.StoreError("list solved problems", err)
	}
	if len(solved) < 2 {
		return nil, common.ErrInsufficientHistory
	}

	i := rand.IntN(len(solved))
	j := rand.IntN(len(solved) - 1)
	if j >= i {
		j++
	}

	p1, err := s.store.Problems.FindByID(ctx, nil, solved[i])
	if err != nil {
		return nil, common.StoreError("find problem", err)
	}
	p2, err := s.store.Problems.FindByID(ctx, nil, solved[j])
	if err != nil {
		return nil, common.StoreError("find problem", err)
	}

	pair := model.PendingPair{Problem1ID: p1.ID, Problem2ID: p2.ID, Type: t, CreatedAt: s.session.Now()}
	if err := s.session.SetPendingPair(userID, pair); err != nil {
		return nil, err
	}
	return &PairView{Type: t, Problem1: p1, Problem2: p2}, nil
}

func (s *RatingService) SubmitJudgment(ctx context.Context, userID int64, choice model.Choice) (*model.RatingDelta, error) {
	pair, ok := s.session.PendingPair(userID)
	if !ok {
		return nil, common.ErrNoPendingJudgment
	}
	if !choice.Valid() {
		return nil, common.ErrInvalidChoice
	}

	delta := &model.RatingDelta{Type: pair.Type, Choice: choice}
	err := s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		p1, err := s.store.Problems.FindByID(ctx, tx, pair.Problem1ID)
		if err != nil {
			return err
		}
		p2, err := s.store.Problems.FindByID(ctx, tx, pair.Problem2ID)
		if err != nil {
			return err
		}
		// Counts are taken before this judgment is written.
		n1, err := s.store.Ratings.CountJudgments(ctx, tx, p1.ID, pair.Type)
		if err != nil {
			return err
		}
		n2, err := s.store.Ratings.CountJudgments(ctx, tx, p2.ID, pair.Type)
		if err != nil {
			return err
		}

		if err := s.store.Ratings.CreateChoice(ctx, tx, &model.RatingChoice{
			Problem1ID: p1.ID, Problem2ID: p2.ID, Choice: choice, Type: pair.Type, RaterID: userID,
		}); err != nil {
			return err
		}

		c1, c2, updated := elo.Update(p1.Rating(pair.Type), p2.Rating(pair.Type), n1, n2, choice)
		c1.ProblemID, c2.ProblemID = p1.ID, p2.ID
		delta.Problem1, delta.Problem2, delta.Updated = c1, c2, updated
		if !updated {
			return nil
		}
		if err := s.store.Problems.UpdateRating(ctx, tx, p1.ID, pair.Type, c1.New); err != nil {
			return err
		}
		return s.store.Problems.UpdateRating(ctx, tx, p2.ID, pair.Type, c2.New)
	})
	if err != nil {
		return nil, common.StoreError("record judgment", err)
	}

	s.session.ClearPendingPair(userID)
	monitoring.RatingJudgmentsTotal.WithLabelValues(string(pair.Type), string(choice)).Inc()
	logger.Log.Info("rating judgment recorded",
		zap.Int64("user_id", userID), zap.String("type", string(pair.Type)), zap.String("choice", string(choice)),
		zap.Int64("problem_1", pair.Problem1ID), zap.Int64("problem_2", pair.Problem2ID))
	return delta, nil
}

// CancelPair drops the user's pending pair without recording anything.
func (s *RatingService) CancelPair(_ context.Context, userID int64) error {
	if !s.session.ClearPendingPair(userID) {
		return common.ErrNoPendingJudgment
	}
	return nil
}
