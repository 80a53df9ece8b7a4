// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/auth"
	"github.com/gatehouse/gatehouse/auth/postgres"
)

func newTestSession(username string) *auth.Session {
	now := time.Now()
	return &auth.Session{
		ID:        ulid.Make(),
		Username:  username,
		TokenHash: auth.HashToken(ulid.Make().String()),
		UserAgent: "Mozilla/5.0",
		IPAddress: "192.168.1.1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionStore_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes prior sessions and inserts in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		session := newTestSession("alice")
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE sessions SET revoked_at`).
			WithArgs("alice", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(
				session.ID.String(), "alice", session.TokenHash,
				session.UserAgent, session.IPAddress,
				session.IssuedAt, session.ExpiresAt, session.RevokedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		store := postgres.NewSessionStore(mock)
		require.NoError(t, store.Replace(ctx, session))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		session := newTestSession("alice")
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE sessions SET revoked_at`).
			WithArgs("alice", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(
				session.ID.String(), "alice", session.TokenHash,
				session.UserAgent, session.IPAddress,
				session.IssuedAt, session.ExpiresAt, session.RevokedAt,
			).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		store := postgres.NewSessionStore(mock)
		err = store.Replace(ctx, session)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionStore_GetByTokenHash(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "username", "token_hash", "user_agent", "ip_address", "issued_at", "expires_at", "revoked_at"}

	t.Run("returns active session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		session := newTestSession("alice")
		rows := pgxmock.NewRows(columns).AddRow(
			session.ID.String(), session.Username, session.TokenHash,
			session.UserAgent, session.IPAddress,
			session.IssuedAt, session.ExpiresAt, nil,
		)
		mock.ExpectQuery(`SELECT (.+) FROM sessions`).
			WithArgs(session.TokenHash).
			WillReturnRows(rows)

		store := postgres.NewSessionStore(mock)
		got, err := store.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.False(t, got.IsRevoked())
	})

	t.Run("returns revoked tombstone", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		session := newTestSession("alice")
		revokedAt := time.Now()
		rows := pgxmock.NewRows(columns).AddRow(
			session.ID.String(), session.Username, session.TokenHash,
			session.UserAgent, session.IPAddress,
			session.IssuedAt, session.ExpiresAt, &revokedAt,
		)
		mock.ExpectQuery(`SELECT (.+) FROM sessions`).
			WithArgs(session.TokenHash).
			WillReturnRows(rows)

		store := postgres.NewSessionStore(mock)
		got, err := store.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.True(t, got.IsRevoked())
	})

	t.Run("unknown hash maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT (.+) FROM sessions`).
			WithArgs("unknown").
			WillReturnError(pgx.ErrNoRows)

		store := postgres.NewSessionStore(mock)
		_, err = store.GetByTokenHash(ctx, "unknown")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionStore_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes active session", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		at := time.Now()
		mock.ExpectExec(`UPDATE sessions SET revoked_at`).
			WithArgs("somehash", at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		store := postgres.NewSessionStore(mock)
		assert.NoError(t, store.Revoke(ctx, "somehash", at))
	})

	t.Run("unknown token is not an error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		at := time.Now()
		mock.ExpectExec(`UPDATE sessions SET revoked_at`).
			WithArgs("unknown", at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		store := postgres.NewSessionStore(mock)
		assert.NoError(t, store.Revoke(ctx, "unknown", at))
	})
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM sessions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	store := postgres.NewSessionStore(mock)
	n, err := store.DeleteExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
