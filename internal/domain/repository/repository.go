package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// TxRunner runs fn inside one transaction. fn sees a nil tx on stores without SQL transactions.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Store bundles every repository the services need.
type Store struct {
	Seasons     SeasonRepository
	Problems    ProblemRepository
	Submissions SubmissionRepository
	Rankings    RankingRepository
	Ratings     RatingRepository
	Users       UserRepository
	Tx          TxRunner
}

func NewPgStore(db *sql.DB) *Store {
	return &Store{
		Seasons:     NewPgSeasonRepository(db),
		Problems:    NewPgProblemRepository(db),
		Submissions: NewPgSubmissionRepository(db),
		Rankings:    NewPgRankingRepository(db),
		Ratings:     NewPgRatingRepository(db),
		Users:       NewPgUserRepository(db),
		Tx:          NewPgTxRunner(db),
	}
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func conn(db *sql.DB, tx *sql.Tx) dbtx {
	if tx != nil {
		return tx
	}
	return db
}

type pgTxRunner struct {
	db *sql.DB
}

func NewPgTxRunner(db *sql.DB) TxRunner {
	return &pgTxRunner{db: db}
}

func (r *pgTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
