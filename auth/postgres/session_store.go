// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/auth"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
type SessionStore struct {
	db DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

// Replace stores the session and revokes the username's prior active
// sessions in a single transaction, so no reader observes both tokens valid
// or neither.
func (s *SessionStore) Replace(ctx context.Context, session *auth.Session) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE username = $1 AND revoked_at IS NULL
	`, session.Username, time.Now())
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "revoke prior sessions").
			With("username", session.Username).
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, username, token_hash, user_agent, ip_address, issued_at, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		session.ID.String(),
		session.Username,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.IssuedAt,
		session.ExpiresAt,
		session.RevokedAt,
	)
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "insert session").
			With("username", session.Username).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash, revoked sessions
// included.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, token_hash, user_agent, ip_address, issued_at, expires_at, revoked_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)

	session, err := s.scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// Revoke marks the session revoked. Unknown or already-revoked tokens are a
// valid state, not an error.
func (s *SessionStore) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash, at)
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes expired sessions and revoked sessions older than the
// retention window, returning the count. Intended for a periodic maintenance
// job.
func (s *SessionStore) DeleteExpired(ctx context.Context, revokedRetention time.Duration) (int64, error) {
	now := time.Now()
	result, err := s.db.Exec(ctx, `
		DELETE FROM sessions
		WHERE expires_at < $1 OR revoked_at < $2
	`, now, now.Add(-revokedRetention))
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanSession scans a single row into a Session.
// Callers are responsible for handling pgx.ErrNoRows.
func (s *SessionStore) scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		username  string
		tokenHash string
		userAgent string
		ipAddress string
		issuedAt  time.Time
		expiresAt time.Time
		revokedAt *time.Time
	)

	err := row.Scan(&idStr, &username, &tokenHash, &userAgent, &ipAddress, &issuedAt, &expiresAt, &revokedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Session{
		ID:        id,
		Username:  username,
		TokenHash: tokenHash,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
