// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package redis

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/auth"
)

// replaceScript revokes the username's prior active session and stores the
// new one in one atomic step. Keys expire at expires_at plus the tombstone
// retention, so revoked and expired sessions stay resolvable for a while
// before Redis reclaims them.
//
// KEYS[1] = new session key, KEYS[2] = active pointer key.
// ARGV: 1=token_hash 2=id 3=username 4=user_agent 5=ip_address
//       6=issued_at 7=expires_at 8=revoked-at-now 9=session key prefix
//       10=expiry unix ms.
var replaceScript = goredis.NewScript(`
local old = redis.call('GET', KEYS[2])
if old and old ~= ARGV[1] then
  local oldKey = ARGV[9] .. old
  if redis.call('EXISTS', oldKey) == 1 and redis.call('HGET', oldKey, 'revoked_at') == '' then
    redis.call('HSET', oldKey, 'revoked_at', ARGV[8])
  end
end
redis.call('HSET', KEYS[1],
  'id', ARGV[2], 'username', ARGV[3], 'token_hash', ARGV[1],
  'user_agent', ARGV[4], 'ip_address', ARGV[5],
  'issued_at', ARGV[6], 'expires_at', ARGV[7], 'revoked_at', '')
redis.call('PEXPIREAT', KEYS[1], ARGV[10])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('PEXPIREAT', KEYS[2], ARGV[10])
return 1
`)

// revokeScript tombstones a session and clears the active pointer if it
// still points at this token. Missing sessions return 0; revoking twice is
// harmless.
//
// KEYS[1] = session key.
// ARGV: 1=revoked-at 2=token_hash 3=active pointer prefix.
var revokeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
if redis.call('HGET', KEYS[1], 'revoked_at') == '' then
  redis.call('HSET', KEYS[1], 'revoked_at', ARGV[1])
end
local username = redis.call('HGET', KEYS[1], 'username')
if username then
  local activeKey = ARGV[3] .. username
  if redis.call('GET', activeKey) == ARGV[2] then
    redis.call('DEL', activeKey)
  end
end
return 1
`)

// SessionStoreConfig configures a SessionStore.
type SessionStoreConfig struct {
	// RevokedRetention is how long sessions stay resolvable past their
	// expiry, so Verify can answer "revoked" or "expired" instead of
	// "not found". Defaults to auth.DefaultRevokedRetention if zero.
	RevokedRetention time.Duration
}

// SessionStore implements auth.SessionStore on Redis. Sessions are hashes
// keyed by token hash with a per-username active pointer; expiry is
// delegated to Redis key TTLs.
type SessionStore struct {
	client    goredis.UniversalClient
	retention time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(client goredis.UniversalClient, cfg SessionStoreConfig) *SessionStore {
	retention := cfg.RevokedRetention
	if retention <= 0 {
		retention = auth.DefaultRevokedRetention
	}
	return &SessionStore{client: client, retention: retention}
}

// Replace stores the session and revokes the username's prior active
// session atomically.
func (s *SessionStore) Replace(ctx context.Context, session *auth.Session) error {
	expireAt := session.ExpiresAt.Add(s.retention)
	err := replaceScript.Run(ctx, s.client,
		[]string{sessionKeyPrefix + session.TokenHash, activeKeyPrefix + session.Username},
		session.TokenHash,
		session.ID.String(),
		session.Username,
		session.UserAgent,
		session.IPAddress,
		session.IssuedAt.UTC().Format(time.RFC3339Nano),
		session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		sessionKeyPrefix,
		expireAt.UnixMilli(),
	).Err()
	if err != nil {
		return oops.Code("SESSION_REPLACE_FAILED").
			With("operation", "replace session").
			With("username", session.Username).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by token hash, tombstones included.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+tokenHash).Result()
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	if len(fields) == 0 {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return parseSessionFields(fields)
}

// Revoke marks the session revoked. Unknown tokens are a valid state, not
// an error.
func (s *SessionStore) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	err := revokeScript.Run(ctx, s.client,
		[]string{sessionKeyPrefix + tokenHash},
		at.UTC().Format(time.RFC3339Nano),
		tokenHash,
		activeKeyPrefix,
	).Err()
	if err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "revoke session").
			Wrap(err)
	}
	return nil
}

// parseSessionFields builds a Session from a Redis hash.
func parseSessionFields(fields map[string]string) (*auth.Session, error) {
	id, err := ulid.Parse(fields["id"])
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", fields["id"]).
			Wrap(err)
	}

	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_TIMESTAMP").
			With("field", "issued_at").
			Wrap(err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_TIMESTAMP").
			With("field", "expires_at").
			Wrap(err)
	}

	var revokedAt *time.Time
	if raw := fields["revoked_at"]; raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, oops.Code("SESSION_INVALID_TIMESTAMP").
				With("field", "revoked_at").
				Wrap(err)
		}
		revokedAt = &parsed
	}

	return &auth.Session{
		ID:        id,
		Username:  fields["username"],
		TokenHash: fields["token_hash"],
		UserAgent: fields["user_agent"],
		IPAddress: fields["ip_address"],
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		RevokedAt: revokedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
