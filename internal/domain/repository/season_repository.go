package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type SeasonRepository interface {
	Create(ctx context.Context, tx *sql.Tx, season *model.Season) error
	FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Season, error)
	// FindRunning returns nil, nil when no season is running. Inside a transaction the row is locked.
	FindRunning(ctx context.Context, tx *sql.Tx) (*model.Season, error)
	List(ctx context.Context) ([]model.Season, error)
	SetRunning(ctx context.Context, tx *sql.Tx, id int64, running bool) error
	SetLatestPotd(ctx context.Context, tx *sql.Tx, seasonID, problemID int64) error
	SetCutoffs(ctx context.Context, tx *sql.Tx, id int64, cutoffs model.Cutoffs) error
}

type pgSeasonRepository struct {
	db *sql.DB
}

func NewPgSeasonRepository(db *sql.DB) SeasonRepository {
	return &pgSeasonRepository{db: db}
}

const seasonColumns = `id, name, slug, running, latest_potd, bronze_cutoff, silver_cutoff, gold_cutoff, created_at`

func scanSeason(row interface{ Scan(...interface{}) error }) (*model.Season, error) {
	s := &model.Season{}
	var latest sql.NullInt64
	var bronze, silver, gold sql.NullFloat64
	if err := row.Scan(&s.ID, &s.Name, &s.Slug, &s.Running, &latest, &bronze, &silver, &gold, &s.CreatedAt); err != nil {
		return nil, err
	}
	if latest.Valid {
		s.LatestPotd = &latest.Int64
	}
	s.Cutoffs = model.Cutoffs{Bronze: nullFloat(bronze), Silver: nullFloat(silver), Gold: nullFloat(gold)}
	return s, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (r *pgSeasonRepository) Create(ctx context.Context, tx *sql.Tx, s *model.Season) error {
	query := `INSERT INTO seasons (name, slug, running, bronze_cutoff, silver_cutoff, gold_cutoff)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, s.Name, s.Slug, s.Running, s.Cutoffs.Bronze, s.Cutoffs.Silver, s.Cutoffs.Gold).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("season with this slug already exists: %w", common.ErrStateConflict)
		}
		return fmt.Errorf("pgSeasonRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSeasonRepository) FindByID(ctx context.Context, tx *sql.Tx, id int64) (*model.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE id = $1`
	s, err := scanSeason(conn(r.db, tx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSeasonNotFound
		}
		return nil, fmt.Errorf("pgSeasonRepository.FindByID: %w", err)
	}
	return s, nil
}

func (r *pgSeasonRepository) FindRunning(ctx context.Context, tx *sql.Tx) (*model.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE running`
	if tx != nil {
		// Serializes writers that depend on the current problem.
		query += ` FOR UPDATE`
	}
	s, err := scanSeason(conn(r.db, tx).QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgSeasonRepository.FindRunning: %w", err)
	}
	return s, nil
}

func (r *pgSeasonRepository) List(ctx context.Context) ([]model.Season, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+seasonColumns+` FROM seasons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgSeasonRepository.List query: %w", err)
	}
	defer rows.Close()

	seasons := []model.Season{}
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("pgSeasonRepository.List scan: %w", err)
		}
		seasons = append(seasons, *s)
	}
	return seasons, rows.Err()
}

func (r *pgSeasonRepository) SetRunning(ctx context.Context, tx *sql.Tx, id int64, running bool) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE seasons SET running = $1 WHERE id = $2`, running, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrSeasonAlreadyRunning
		}
		return fmt.Errorf("pgSeasonRepository.SetRunning: %w", err)
	}
	return expectOneRow(res, common.ErrSeasonNotFound)
}

func (r *pgSeasonRepository) SetLatestPotd(ctx context.Context, tx *sql.Tx, seasonID, problemID int64) error {
	res, err := conn(r.db, tx).ExecContext(ctx, `UPDATE seasons SET latest_potd = $1 WHERE id = $2`, problemID, seasonID)
	if err != nil {
		return fmt.Errorf("pgSeasonRepository.SetLatestPotd: %w", err)
	}
	return expectOneRow(res, common.ErrSeasonNotFound)
}

func (r *pgSeasonRepository) SetCutoffs(ctx context.Context, tx *sql.Tx, id int64, c model.Cutoffs) error {
	query := `UPDATE seasons SET bronze_cutoff = $1, silver_cutoff = $2, gold_cutoff = $3 WHERE id = $4`
	res, err := conn(r.db, tx).ExecContext(ctx, query, c.Bronze, c.Silver, c.Gold, id)
	if err != nil {
		return fmt.Errorf("pgSeasonRepository.SetCutoffs: %w", err)
	}
	return expectOneRow(res, common.ErrSeasonNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
