package repository

import (
	"context"
	"database/sql"
	"fmt"

	"potd_engine/internal/domain/model"
)

type RatingRepository interface {
	CreateChoice(ctx context.Context, tx *sql.Tx, choice *model.RatingChoice) error
	// CountJudgments counts decided judgments of one type that reference the problem.
	CountJudgments(ctx context.Context, tx *sql.Tx, problemID int64, ratingType model.RatingType) (int, error)
}

type pgRatingRepository struct {
	db *sql.DB
}

func NewPgRatingRepository(db *sql.DB) RatingRepository {
	return &pgRatingRepository{db: db}
}

func (r *pgRatingRepository) CreateChoice(ctx context.Context, tx *sql.Tx, c *model.RatingChoice) error {
	query := `INSERT INTO rating_choices (problem_1_id, problem_2_id, choice, type, rater_id)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, c.Problem1ID, c.Problem2ID, string(c.Choice), string(c.Type), c.RaterID).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgRatingRepository.CreateChoice: %w", err)
	}
	return nil
}

func (r *pgRatingRepository) CountJudgments(ctx context.Context, tx *sql.Tx, problemID int64, t model.RatingType) (int, error) {
	query := `SELECT COUNT(*) FROM rating_choices
	          WHERE (problem_1_id = $1 OR problem_2_id = $1) AND type = $2 AND choice <> 'd'`
	var n int
	if err := conn(r.db, tx).QueryRowContext(ctx, query, problemID, string(t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgRatingRepository.CountJudgments: %w", err)
	}
	return n, nil
}
