package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
)

type SubmissionRepository interface {
	CreateAttempt(ctx context.Context, tx *sql.Tx, attempt *model.Attempt) error
	CountAttempts(ctx context.Context, tx *sql.Tx, userID, problemID int64, official bool) (int, error)
	// ListAttempts returns every attempt on a problem in submission order.
	ListAttempts(ctx context.Context, tx *sql.Tx, problemID int64) ([]model.Attempt, error)

	FindSolve(ctx context.Context, tx *sql.Tx, userID, problemID int64) (*model.Solve, error)
	// CreateSolve reports false when the (user, problem) pair was already solved.
	CreateSolve(ctx context.Context, tx *sql.Tx, solve *model.Solve) (bool, error)
	DeleteSolvesForProblem(ctx context.Context, tx *sql.Tx, problemID int64) error
	// ListOfficialSolvesBySeason is ordered by problem id, then user id.
	ListOfficialSolvesBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]model.Solve, error)
	ListSolvedProblemIDs(ctx context.Context, userID int64) ([]int64, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateAttempt(ctx context.Context, tx *sql.Tx, a *model.Attempt) error {
	query := `INSERT INTO attempts (user_id, problem_id, official, submission)
	          VALUES ($1, $2, $3, $4) RETURNING id, submitted_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query, a.UserID, a.ProblemID, a.Official, a.Submission).
		Scan(&a.ID, &a.SubmittedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateAttempt: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CountAttempts(ctx context.Context, tx *sql.Tx, userID, problemID int64, official bool) (int, error) {
	query := `SELECT COUNT(*) FROM attempts WHERE user_id = $1 AND problem_id = $2 AND official = $3`
	var n int
	if err := conn(r.db, tx).QueryRowContext(ctx, query, userID, problemID, official).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountAttempts: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) ListAttempts(ctx context.Context, tx *sql.Tx, problemID int64) ([]model.Attempt, error) {
	query := `SELECT id, user_id, problem_id, official, submission, submitted_at
	          FROM attempts WHERE problem_id = $1 ORDER BY submitted_at, id`
	rows, err := conn(r.db, tx).QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListAttempts query: %w", err)
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProblemID, &a.Official, &a.Submission, &a.SubmittedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListAttempts scan: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *pgSubmissionRepository) FindSolve(ctx context.Context, tx *sql.Tx, userID, problemID int64) (*model.Solve, error) {
	query := `SELECT id, user_id, problem_id, num_attempts, official FROM solves WHERE user_id = $1 AND problem_id = $2`
	s := &model.Solve{}
	err := conn(r.db, tx).QueryRowContext(ctx, query, userID, problemID).
		Scan(&s.ID, &s.UserID, &s.ProblemID, &s.NumAttempts, &s.Official)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindSolve: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) CreateSolve(ctx context.Context, tx *sql.Tx, s *model.Solve) (bool, error) {
	query := `INSERT INTO solves (user_id, problem_id, num_attempts, official)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, problem_id) DO NOTHING
	          RETURNING id`
	err := conn(r.db, tx).QueryRowContext(ctx, query, s.UserID, s.ProblemID, s.NumAttempts, s.Official).Scan(&s.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("pgSubmissionRepository.CreateSolve: %w", err)
	}
	return true, nil
}

func (r *pgSubmissionRepository) DeleteSolvesForProblem(ctx context.Context, tx *sql.Tx, problemID int64) error {
	if _, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM solves WHERE problem_id = $1`, problemID); err != nil {
		return fmt.Errorf("pgSubmissionRepository.DeleteSolvesForProblem: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ListOfficialSolvesBySeason(ctx context.Context, tx *sql.Tx, seasonID int64) ([]model.Solve, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.num_attempts, s.official
	          FROM solves s
	          JOIN problems p ON p.id = s.problem_id
	          WHERE p.season_id = $1 AND s.official
	          ORDER BY s.problem_id, s.user_id`
	rows, err := conn(r.db, tx).QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListOfficialSolvesBySeason query: %w", err)
	}
	defer rows.Close()

	solves := []model.Solve{}
	for rows.Next() {
		var s model.Solve
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.NumAttempts, &s.Official); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListOfficialSolvesBySeason scan: %w", err)
		}
		solves = append(solves, s)
	}
	return solves, rows.Err()
}

func (r *pgSubmissionRepository) ListSolvedProblemIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT problem_id FROM solves WHERE user_id = $1 ORDER BY problem_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSolvedProblemIDs: %w", err)
	}
	return scanIDs(rows)
}
