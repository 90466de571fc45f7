package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/logger"
	"potd_engine/internal/platform/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// AdminService holds the catalog operations reserved for administrators.
type AdminService struct {
	store   *repository.Store
	scoring *ScoringService
	blobs   storage.BlobStore
}

func NewAdminService(store *repository.Store, scoring *ScoringService, blobs storage.BlobStore) *AdminService {
	return &AdminService{store: store, scoring: scoring, blobs: blobs}
}

type NewSeasonRequest struct {
	Name    string        `json:"name"`
	Cutoffs model.Cutoffs `json:"cutoffs"`
}

func (s *AdminService) NewSeason(ctx context.Context, req NewSeasonRequest) (*model.Season, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.ErrMissingRequiredFields
	}
	if err := req.Cutoffs.Validate(); err != nil {
		return nil, err
	}
	season := &model.Season{Name: name, Slug: slug.Make(name), Cutoffs: req.Cutoffs}
	if season.Slug == "" {
		season.Slug = "season-" + uuid.NewString()[:8]
	}
	if err := s.store.Seasons.Create(ctx, nil, season); err != nil {
		return nil, common.StoreError("create season", err)
	}
	logger.Log.Info("season created", zap.Int64("season_id", season.ID), zap.String("slug", season.Slug))
	return season, nil
}

// StartSeason marks a season running. Starting the already running season is a no-op.
func (s *AdminService) StartSeason(ctx context.Context, seasonID int64) (*model.Season, error) {
	var season *model.Season
	err := s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.store.Seasons.FindByID(ctx, tx, seasonID); err != nil {
			return err
		}
		running, err := s.store.Seasons.FindRunning(ctx, tx)
		if err != nil {
			return err
		}
		if running != nil && running.ID != seasonID {
			return common.ErrSeasonAlreadyRunning
		}
		if err := s.store.Seasons.SetRunning(ctx, tx, seasonID, true); err != nil {
			return err
		}
		season, err = s.store.Seasons.FindByID(ctx, tx, seasonID)
		return err
	})
	if err != nil {
		return nil, common.StoreError("start season", err)
	}
	logger.Log.Info("season started", zap.Int64("season_id", seasonID))
	return season, nil
}

func (s *AdminService) EndSeason(ctx context.Context, seasonID int64) (*model.Season, error) {
	if err := s.store.Seasons.SetRunning(ctx, nil, seasonID, false); err != nil {
		return nil, common.StoreError("end season", err)
	}
	season, err := s.store.Seasons.FindByID(ctx, nil, seasonID)
	if err != nil {
		return nil, common.StoreError("find season", err)
	}
	logger.Log.Info("season ended", zap.Int64("season_id", seasonID))
	return season, nil
}

func (s *AdminService) SetCutoffs(ctx context.Context, seasonID int64, cutoffs model.Cutoffs) (*model.Season, error) {
	if err := cutoffs.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Seasons.SetCutoffs(ctx, nil, seasonID, cutoffs); err != nil {
		return nil, common.StoreError("set cutoffs", err)
	}
	season, err := s.store.Seasons.FindByID(ctx, nil, seasonID)
	if err != nil {
		return nil, common.StoreError("find season", err)
	}
	return season, nil
}

func (s *AdminService) Recompute(ctx context.Context, seasonID int64) error {
	if _, err := s.store.Seasons.FindByID(ctx, nil, seasonID); err != nil {
		return common.StoreError("find season", err)
	}
	return s.scoring.Recompute(ctx, seasonID)
}

type AddProblemRequest struct {
	SeasonID  int64  `json:"season_id"`
	Date      string `json:"date"`
	Statement string `json:"statement"`
	Answer    *int64 `json:"answer"`
	Public    bool   `json:"public"`
}

func (s *AdminService) AddProblem(ctx context.Context, req AddProblemRequest) (*model.Problem, error) {
	if req.SeasonID == 0 || req.Date == "" || req.Answer == nil {
		return nil, common.ErrMissingRequiredFields
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Seasons.FindByID(ctx, nil, req.SeasonID); err != nil {
		return nil, common.StoreError("find season", err)
	}

	problem := &model.Problem{
		SeasonID:         req.SeasonID,
		Date:             date,
		Statement:        req.Statement,
		Answer:           *req.Answer,
		Public:           req.Public,
		DifficultyRating: model.DefaultRating,
		QualityRating:    model.DefaultRating,
	}
	if err := s.store.Problems.Create(ctx, nil, problem); err != nil {
		return nil, common.StoreError("create problem", err)
	}
	logger.Log.Info("problem added", zap.Int64("problem_id", problem.ID), zap.Int64("season_id", problem.SeasonID),
		zap.String("date", req.Date))
	return problem, nil
}

// UpdateProblem applies a whitelisted update. A changed answer regrades every attempt on the problem.
func (s *AdminService) UpdateProblem(ctx context.Context, problemID int64, u model.ProblemUpdate) (*model.Problem, error) {
	if u.IsEmpty() {
		return nil, common.ErrEmptyProblemUpdate
	}
	if u.Date != nil {
		d := model.DateOf(*u.Date)
		u.Date = &d
	}

	var before, after *model.Problem
	err := s.store.Tx.RunInTx(ctx, func(tx *sql.Tx) error {
		var err error
		before, err = s.store.Problems.FindByID(ctx, tx, problemID)
		if err != nil {
			return err
		}
		if u.SeasonID != nil {
			if _, err := s.store.Seasons.FindByID(ctx, tx, *u.SeasonID); err != nil {
				return err
			}
		}
		if err := s.store.Problems.Update(ctx, tx, problemID, u); err != nil {
			return err
		}
		after, err = s.store.Problems.FindByID(ctx, tx, problemID)
		if err != nil {
			return err
		}

		if after.Answer != before.Answer {
			if err := s.regenerateSolves(ctx, tx, after); err != nil {
				return fmt.Errorf("regenerate solves: %w", err)
			}
		}
		if after.Answer != before.Answer || after.SeasonID != before.SeasonID {
			if err := s.scoring.RecomputeTx(ctx, tx, after.SeasonID); err != nil {
				return err
			}
		}
		if after.SeasonID != before.SeasonID {
			return s.scoring.RecomputeTx(ctx, tx, before.SeasonID)
		}
		return nil
	})
	if err != nil {
		return nil, common.StoreError("update problem", err)
	}
	logger.Log.Info("problem updated", zap.Int64("problem_id", problemID),
		zap.Bool("answer_changed", after.Answer != before.Answer))
	return after, nil
}

// regenerateSolves replays the problem's attempts against its current answer. Each
// user's first correct attempt becomes their solve; num_attempts counts attempts of
// the same officiality up to and including it.
func (s *AdminService) regenerateSolves(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	if err := s.store.Submissions.DeleteSolvesForProblem(ctx, tx, p.ID); err != nil {
		return err
	}
	attempts, err := s.store.Submissions.ListAttempts(ctx, tx, p.ID)
	if err != nil {
		return err
	}

	type counts struct{ official, unofficial int }
	seen := make(map[int64]*counts)
	solved := make(map[int64]bool)
	for _, a := range attempts {
		c, ok := seen[a.UserID]
		if !ok {
			c = &counts{}
			seen[a.UserID] = c
		}
		n := &c.unofficial
		if a.Official {
			n = &c.official
		}
		*n++
		if solved[a.UserID] || a.Submission != p.Answer {
			continue
		}
		if _, err := s.store.Submissions.CreateSolve(ctx, tx, &model.Solve{
			UserID: a.UserID, ProblemID: p.ID, NumAttempts: *n, Official: a.Official,
		}); err != nil {
			return err
		}
		solved[a.UserID] = true
	}
	logger.Log.Info("solves regenerated", zap.Int64("problem_id", p.ID), zap.Int("solves", len(solved)))
	return nil
}

// AddImage stores an image for a problem, in the object store when one is configured.
func (s *AdminService) AddImage(ctx context.Context, problemID int64, contentType string, data []byte) (*model.ProblemImage, error) {
	if len(data) == 0 || contentType == "" {
		return nil, common.ErrMissingRequiredFields
	}
	if _, err := s.store.Problems.FindByID(ctx, nil, problemID); err != nil {
		return nil, common.StoreError("find problem", err)
	}

	img := &model.ProblemImage{ProblemID: problemID, ContentType: contentType}
	if s.blobs != nil {
		img.ObjectKey = fmt.Sprintf("problems/%d/%s", problemID, uuid.NewString())
		if err := s.blobs.Put(ctx, img.ObjectKey, data, contentType); err != nil {
			return nil, common.StoreError("upload image", err)
		}
	} else {
		img.Data = data
	}
	if err := s.store.Problems.CreateImage(ctx, nil, img); err != nil {
		return nil, common.StoreError("save image", err)
	}
	return img, nil
}

// ParseDateUpdate turns an optional "YYYY-MM-DD" string into a ProblemUpdate date.
func ParseDateUpdate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := model.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
