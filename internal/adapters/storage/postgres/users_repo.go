package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pet-wellness/internal/domain/session"
)

type UsersRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db, now: time.Now}
}

func (r *UsersRepo) Get(ctx context.Context, id string) (session.User, error) {
	var u session.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, is_subscribed, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Subscribed, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.User{}, session.ErrUserNotFound
	}
	if err != nil {
		return session.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u session.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, is_subscribed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, u.ID, u.Email, u.Subscribed, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return session.ErrUserExists
	}
	return err
}

func (r *UsersRepo) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET is_subscribed = $2, updated_at = $3
		WHERE id = $1
	`, id, subscribed, r.now().UTC())
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return session.ErrUserNotFound
	}
	return nil
}
