package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/repository"
)

type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a user and returns its id.
//
// Returns:
//   - error: repository.ErrConflict if the username is taken.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (int64, error) {
	const op = "postgres.UserRepo.Create"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO users(username, password_hash, auth_token)
		 VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING id`,
		u.Username, u.PasswordHash, u.AuthToken,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	const op = "postgres.UserRepo.ByUsername"
	return r.one(ctx, op, `WHERE username = $1`, username)
}

func (r *UserRepo) ByAuthToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "postgres.UserRepo.ByAuthToken"

	if token == "" {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return r.one(ctx, op, `WHERE auth_token = $1`, token)
}

func (r *UserRepo) one(ctx context.Context, op, where string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.handle().QueryRow(ctx,
		`SELECT id, username, password_hash, COALESCE(auth_token, ''), created_at
		   FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AuthToken, &u.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &u, nil
}

// SetAuthToken replaces the user's token; an empty token clears it.
func (r *UserRepo) SetAuthToken(ctx context.Context, userID int64, token string) error {
	const op = "postgres.UserRepo.SetAuthToken"

	ct, err := r.handle().Exec(ctx,
		`UPDATE users SET auth_token = NULLIF($2, '') WHERE id = $1`,
		userID, token,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
