// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/auth"
)

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	db DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

// Create stores a new user. A unique violation on the username index maps to
// auth.ErrDuplicateUsername, so concurrent registrations resolve to exactly
// one winner.
func (s *UserStore) Create(ctx context.Context, user *auth.User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_CREATE_FAILED").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateUsername)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at, updated_at
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`, username)

	user, err := s.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_USERNAME_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// UpdatePasswordHash updates only the password hash for a user.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := s.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password hash").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func (s *UserStore) scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		username     string
		passwordHash string
		role         string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &username, &passwordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         auth.Role(role),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
