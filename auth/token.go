// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// TokenBytes is the entropy of a session token (32 bytes = 256 bits,
	// hex-encoded to 64 characters).
	TokenBytes = 32

	// DefaultTokenTTL mirrors the 30-day cookie lifetime of the original
	// application, but enforced server-side.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// Session is a server-side session record. Only the SHA-256 hash of the
// token is stored; the plaintext is returned once at issue time and carried
// by the client.
type Session struct {
	ID        ulid.ULID
	Username  string
	TokenHash string
	UserAgent string
	IPAddress string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// RevokedAt is set when the session is rotated out or explicitly
	// revoked. Revoked sessions are kept as tombstones until cleanup so
	// Verify can distinguish "revoked" from "never existed".
	RevokedAt *time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given
// time. Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// IsRevoked returns true if the session has been rotated out or revoked.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// GenerateToken creates a secure random session token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to the
// client; only the hash is stored.
func GenerateToken() (token, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hash of a session token, used as the
// storage key so a leaked store does not leak usable tokens.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyTokenHash checks a plaintext token against a stored hash in
// constant time.
func VerifyTokenHash(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// SessionStore manages session persistence. Implementations must make
// Replace atomic with respect to concurrent lookups: at no point may both
// the old and the new session verify, and a bounded race resolves in favour
// of rejecting the stale token.
type SessionStore interface {
	// Replace stores a new session and atomically revokes any active
	// session for the same username (single active session policy).
	Replace(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session, revoked tombstones included.
	// Returns ErrNotFound (wrapped) if the hash is unknown.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Revoke marks the session with the given token hash revoked at the
	// given time. Idempotent: revoking an already-revoked or unknown
	// session is not an error.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
}

// TokenIssuer issues and verifies opaque session tokens. Implemented by
// Issuer; declared as an interface so Service can be tested against mocks.
type TokenIssuer interface {
	// Issue creates a session for the username, invalidating any prior one.
	// Returns the stored session and the plaintext token.
	Issue(ctx context.Context, username, userAgent, ipAddress string) (*Session, string, error)

	// Verify resolves a plaintext token to its owning username. Fails with
	// CodeTokenExpired, CodeTokenRevoked or CodeTokenNotFound.
	Verify(ctx context.Context, token string) (string, error)

	// Revoke invalidates a token immediately. Idempotent.
	Revoke(ctx context.Context, token string) error
}

// Issuer is the SessionStore-backed TokenIssuer.
type Issuer struct {
	store SessionStore
	ttl   time.Duration
}

// NewIssuer creates an Issuer. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewIssuer(store SessionStore, ttl time.Duration) (*Issuer, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{store: store, ttl: ttl}, nil
}

// TTL returns the configured session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue generates a token, persists its session, and rotates out any prior
// session for the username.
func (i *Issuer) Issue(ctx context.Context, username, userAgent, ipAddress string) (*Session, string, error) {
	if username == "" {
		return nil, "", oops.Code(CodeInvalidInput).Errorf("username cannot be empty")
	}

	token, tokenHash, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	session := &Session{
		ID:        ulid.Make(),
		Username:  username,
		TokenHash: tokenHash,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}

	if err := i.store.Replace(ctx, session); err != nil {
		return nil, "", oops.Code(CodeStoreUnavailable).
			With("operation", "persist session").
			Wrap(err)
	}
	return session, token, nil
}

// Verify resolves a plaintext token to its owning username.
func (i *Issuer) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", oops.Code(CodeTokenNotFound).Errorf("session token cannot be empty")
	}

	session, err := i.store.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeTokenNotFound).Errorf("unknown session token")
		}
		return "", oops.Code(CodeStoreUnavailable).
			With("operation", "get session by token hash").
			Wrap(err)
	}

	// Check revocation before expiry: a rotated-out token should read as
	// revoked even after it would also have expired.
	if session.IsRevoked() {
		return "", oops.Code(CodeTokenRevoked).Errorf("session token has been revoked")
	}
	if session.IsExpired() {
		return "", oops.Code(CodeTokenExpired).Errorf("session has expired")
	}
	return session.Username, nil
}

// Revoke invalidates a token immediately. Unknown tokens are ignored.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := i.store.Revoke(ctx, HashToken(token), time.Now()); err != nil {
		return oops.Code(CodeStoreUnavailable).
			With("operation", "revoke session").
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ TokenIssuer = (*Issuer)(nil)
