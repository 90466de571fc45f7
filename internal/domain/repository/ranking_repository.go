package repository

import (
	"context"
	"database/sql"
	"fmt"

	"potd_engine/internal/domain/model"
)

type RankingRepository interface {
	// Ensure registers a participant with score 0; existing rows are left alone.
	Ensure(ctx context.Context, tx *sql.Tx, seasonID, userID int64) error
	// ListBySeason is ordered by rank, then user id.
	ListBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]model.Ranking, error)
	Upsert(ctx context.Context, tx *sql.Tx, rankings []model.Ranking) error
}

type pgRankingRepository struct {
	db *sql.DB
}

func NewPgRankingRepository(db *sql.DB) RankingRepository {
	return &pgRankingRepository{db: db}
}

func (r *pgRankingRepository) Ensure(ctx context.Context, tx *sql.Tx, seasonID, userID int64) error {
	// New rows rank after everyone until the next recompute.
	query := `INSERT INTO rankings (season_id, user_id, rank, score)
	          SELECT $1, $2, COUNT(*) + 1, 0 FROM rankings WHERE season_id = $1
	          ON CONFLICT (season_id, user_id) DO NOTHING`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, seasonID, userID); err != nil {
		return fmt.Errorf("pgRankingRepository.Ensure: %w", err)
	}
	return nil
}

func (r *pgRankingRepository) ListBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]model.Ranking, error) {
	query := `SELECT season_id, user_id, rank, score FROM rankings WHERE season_id = $1 ORDER BY rank, user_id`
	rows, err := conn(r.db, tx).QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("pgRankingRepository.ListBySeason query: %w", err)
	}
	defer rows.Close()

	rankings := []model.Ranking{}
	for rows.Next() {
		var rk model.Ranking
		if err := rows.Scan(&rk.SeasonID, &rk.UserID, &rk.Rank, &rk.Score); err != nil {
			return nil, fmt.Errorf("pgRankingRepository.ListBySeason scan: %w", err)
		}
		rankings = append(rankings, rk)
	}
	return rankings, rows.Err()
}

func (r *pgRankingRepository) Upsert(ctx context.Context, tx *sql.Tx, rankings []model.Ranking) error {
	query := `INSERT INTO rankings (season_id, user_id, rank, score) VALUES ($1, $2, $3, $4)
	          ON CONFLICT (season_id, user_id) DO UPDATE SET rank = EXCLUDED.rank, score = EXCLUDED.score`
	q := conn(r.db, tx)
	for _, rk := range rankings {
		if _, err := q.ExecContext(ctx, query, rk.SeasonID, rk.UserID, rk.Rank, rk.Score); err != nil {
			return fmt.Errorf("pgRankingRepository.Upsert user %d: %w", rk.UserID, err)
		}
	}
	return nil
}
