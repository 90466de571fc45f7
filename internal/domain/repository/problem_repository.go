package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
)

type ProblemRepository interface {
	Create(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	Update(ctx context.Context, tx *sql.Tx, id int64, update model.ProblemUpdate) error
	FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Problem, error)
	// FindByDate lists problems on a calendar date, ordered by id.
	FindByDate(ctx context.Context, date time.Time, publicOnly bool) ([]model.Problem, error)
	FindBySeasonAndDate(ctx context.Context, tx *sql.Tx, seasonID int64, date time.Time) ([]model.Problem, error)
	ListIDsBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]int64, error)
	SetPublic(ctx context.Context, tx *sql.Tx, id int64, public bool) error
	UpdateStats(ctx context.Context, tx *sql.Tx, stats []model.ProblemStats) error
	UpdateRating(ctx context.Context, tx *sql.Tx, id int64, ratingType model.RatingType, rating float64) error

	CreateImage(ctx context.Context, tx *sql.Tx, image *model.ProblemImage) error
	FindImage(ctx context.Context, problemID, imageID int64) (*model.ProblemImage, error)
	ListImageIDs(ctx context.Context, problemID int64) ([]int64, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `id, season_id, date, statement, answer, public, difficulty_rating, quality_rating,
	weighted_solves, base_points, created_at`

func scanProblem(row interface{ Scan(...interface{}) error }) (*model.Problem, error) {
	p := &model.Problem{}
	err := row.Scan(&p.ID, &p.SeasonID, &p.Date, &p.Statement, &p.Answer, &p.Public,
		&p.DifficultyRating, &p.QualityRating, &p.WeightedSolves, &p.BasePoints, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Date = model.DateOf(p.Date)
	return p, nil
}

func (r *pgProblemRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (season_id, date, statement, answer, public, difficulty_rating, quality_rating)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, p.SeasonID, p.Date, p.Statement, p.Answer, p.Public,
		p.DifficultyRating, p.QualityRating).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Create: %w", err)
	}
	return nil
}

// Update only touches the columns set in u. Column names come from this list, never from input.
func (r *pgProblemRepository) Update(ctx context.Context, tx *sql.Tx, id int64, u model.ProblemUpdate) error {
	if u.IsEmpty() {
		return common.ErrEmptyProblemUpdate
	}
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.SeasonID != nil {
		add("season_id", *u.SeasonID)
	}
	if u.Date != nil {
		add("date", *u.Date)
	}
	if u.Statement != nil {
		add("statement", *u.Statement)
	}
	if u.Answer != nil {
		add("answer", *u.Answer)
	}
	if u.Public != nil {
		add("public", *u.Public)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE problems SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := conn(r.db, tx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Update: %w", err)
	}
	return expectOneRow(res, common.ErrProblemNotFound)
}

func (r *pgProblemRepository) FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	p, err := scanProblem(conn(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrProblemNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) queryProblems(ctx context.Context, q dbtx, op, query string, args ...interface{}) ([]model.Problem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.%s query: %w", op, err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProblemRepository.%s scan: %w", op, err)
		}
		problems = append(problems, *p)
	}
	return problems, rows.Err()
}

func (r *pgProblemRepository) FindByDate(ctx context.Context, date time.Time, publicOnly bool) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE date = $1`
	if publicOnly {
		query += ` AND public`
	}
	query += ` ORDER BY id`
	return r.queryProblems(ctx, r.db, "FindByDate", query, date)
}

func (r *pgProblemRepository) FindBySeasonAndDate(ctx context.Context, tx *sql.Tx, seasonID int64, date time.Time) ([]model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE season_id = $1 AND date = $2 ORDER BY id`
	return r.queryProblems(ctx, conn(r.db, tx), "FindBySeasonAndDate", query, seasonID, date)
}

func (r *pgProblemRepository) ListIDsBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]int64, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx, `SELECT id FROM problems WHERE season_id = $1 ORDER BY id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListIDsBySeason: %w", err)
	}
	return scanIDs(rows)
}

func (r *pgProblemRepository) SetPublic(ctx context.Context, tx *sql.Tx, id int64, public bool) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE problems SET public = $1 WHERE id = $2`, public, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.SetPublic: %w", err)
	}
	return expectOneRow(res, common.ErrProblemNotFound)
}

func (r *pgProblemRepository) UpdateStats(ctx context.Context, tx *sql.Tx, stats []model.ProblemStats) error {
	q := conn(r.db, tx)
	for _, s := range stats {
		_, err := q.ExecContext(ctx, `UPDATE problems SET weighted_solves = $1, base_points = $2 WHERE id = $3`,
			s.WeightedSolves, s.BasePoints, s.ProblemID)
		if err != nil {
			return fmt.Errorf("pgProblemRepository.UpdateStats problem %d: %w", s.ProblemID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) UpdateRating(ctx context.Context, tx *sql.Tx, id int64, t model.RatingType, rating float64) error {
	column := "quality_rating"
	if t == model.RatingDifficulty {
		column = "difficulty_rating"
	}
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE problems SET `+column+` = $1 WHERE id = $2`, rating, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateRating: %w", err)
	}
	return expectOneRow(res, common.ErrProblemNotFound)
}

func (r *pgProblemRepository) CreateImage(ctx context.Context, tx *sql.Tx, img *model.ProblemImage) error {
	query := `INSERT INTO problem_images (problem_id, content_type, object_key, data)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	var objectKey sql.NullString
	if img.ObjectKey != "" {
		objectKey = sql.NullString{String: img.ObjectKey, Valid: true}
	}
	err := conn(r.db, tx).QueryRowContext(ctx, query, img.ProblemID, img.ContentType, objectKey, img.Data).
		Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateImage: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindImage(ctx context.Context, problemID, imageID int64) (*model.ProblemImage, error) {
	query := `SELECT id, problem_id, content_type, COALESCE(object_key, ''), data, created_at
	          FROM problem_images WHERE id = $1 AND problem_id = $2`
	img := &model.ProblemImage{}
	err := r.db.QueryRowContext(ctx, query, imageID, problemID).
		Scan(&img.ID, &img.ProblemID, &img.ContentType, &img.ObjectKey, &img.Data, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrImageNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindImage: %w", err)
	}
	return img, nil
}

func (r *pgProblemRepository) ListImageIDs(ctx context.Context, problemID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM problem_images WHERE problem_id = $1 ORDER BY id`, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListImageIDs: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
