package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/seat-booking-service/internal/model"
)

// UserRepo is the read side of the user directory.  Accounts are created by
// the identity provider; Ensure exists for seeding local environments.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByID fetches a user by primary key or returns ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,created_at FROM users WHERE id=? LIMIT 1", id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Ensure returns the id of the user with the given email, creating the row
// when it does not exist yet.
func (r *UserRepo) Ensure(ctx context.Context, email string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := r.DB.ExecContext(ctx, "INSERT IGNORE INTO users (email) VALUES (?)", email); err != nil {
		return 0, err
	}
	var id uint64
	if err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
