package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
)

type UserRepository interface {
	// Ensure creates the user with default settings if missing and returns the stored row.
	Ensure(ctx context.Context, tx *sql.Tx, id int64) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
	UpdateSettings(ctx context.Context, id int64, settings model.UserSettings) (*model.User, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, nickname, anonymous, receive_medals, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	u := &model.User{}
	var nickname sql.NullString
	if err := row.Scan(&u.ID, &nickname, &u.Anonymous, &u.ReceiveMedals, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if nickname.Valid {
		u.Nickname = &nickname.String
	}
	return u, nil
}

func (r *pgUserRepository) Ensure(ctx context.Context, tx *sql.Tx, id int64) (*model.User, error) {
	q := conn(r.db, tx)
	if _, err := q.ExecContext(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id); err != nil {
		return nil, fmt.Errorf("pgUserRepository.Ensure insert: %w", err)
	}
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.Ensure select: %w", err)
	}
	return u, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return u, nil
}

func (r *pgUserRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	users := make(map[int64]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	// pgx encodes []int64 as bigint[].
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.FindByIDs query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.FindByIDs scan: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (r *pgUserRepository) UpdateSettings(ctx context.Context, id int64, s model.UserSettings) (*model.User, error) {
	query := `UPDATE users SET
	              nickname = COALESCE($1, nickname),
	              anonymous = COALESCE($2, anonymous),
	              receive_medals = COALESCE($3, receive_medals),
	              updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4
	          RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, s.Nickname, s.Anonymous, s.ReceiveMedals, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.UpdateSettings: %w", err)
	}
	return u, nil
}
