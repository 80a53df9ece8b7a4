// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when a user doesn't exist, so the
// missing-user and wrong-password paths take the same time. It is a
// well-formed bcrypt hash that matches no password in practice; even a
// contrived match is discarded because the user does not exist.
//
//nolint:gosec // G101: intentionally fake hash for timing parity, not a credential.
const dummyPasswordHash = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service orchestrates registration, login and session validation over a
// UserStore, TokenIssuer, PasswordHasher and FailureLimiter.
type Service struct {
	users   UserStore
	tokens  TokenIssuer
	hasher  PasswordHasher
	limiter FailureLimiter
	logger  *slog.Logger

	// hashGate bounds concurrent hash computations so the deliberately
	// slow hash cannot starve unrelated requests.
	hashGate chan struct{}
}

// NewService creates a Service. All dependencies are required.
func NewService(users UserStore, tokens TokenIssuer, hasher PasswordHasher, limiter FailureLimiter) (*Service, error) {
	return NewServiceWithLogger(users, tokens, hasher, limiter, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a Service with an injected logger. Login
// failures are logged at debug level with their internal cause; the error
// returned to the caller stays deliberately uninformative.
func NewServiceWithLogger(users UserStore, tokens TokenIssuer, hasher PasswordHasher, limiter FailureLimiter, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if limiter == nil {
		return nil, oops.Errorf("failure limiter is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	cfg := Config{}.withDefaults()
	return &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		logger:   logger,
		hashGate: make(chan struct{}, cfg.HashConcurrency),
	}, nil
}

// NewStandaloneService wires a Service entirely from in-process components:
// bcrypt hashing, a memory session store and a memory failure limiter,
// configured from cfg. The returned stop function releases the background
// goroutines; call it at shutdown.
//
// The UserStore remains injected: it is the one collaborator that must
// outlive the process (see the postgres subpackage).
func NewStandaloneService(cfg Config, users UserStore, logger *slog.Logger) (*Service, func(), error) {
	cfg = cfg.withDefaults()

	sessions := NewMemorySessionStore(MemorySessionStoreConfig{})
	limiter := NewWindowLimiter(WindowLimiterConfig{
		Threshold: cfg.RateLimitThreshold,
		Window:    cfg.RateLimitWindow,
	})
	stop := func() {
		sessions.Close()
		limiter.Close()
	}

	issuer, err := NewIssuer(sessions, cfg.TokenTTL)
	if err != nil {
		stop()
		return nil, nil, err
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	svc, err := NewServiceWithLogger(users, issuer, NewBcryptHasher(cfg.BcryptCost), limiter, logger)
	if err != nil {
		stop()
		return nil, nil, err
	}
	svc.hashGate = make(chan struct{}, cfg.HashConcurrency)

	return svc, stop, nil
}

// Register creates a new account with RoleUser. No session is issued; the
// caller directs the user to log in.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	creds, err := ValidateCredentials(username, password)
	if err != nil {
		RecordRegistration(StatusInvalidInput)
		return nil, err
	}

	// Friendly pre-check. The store's uniqueness constraint remains the
	// authority; a racing registration surfaces as ErrDuplicateUsername
	// from Create below.
	_, err = s.users.GetByUsername(ctx, creds.Username)
	switch {
	case err == nil:
		RecordRegistration(StatusDuplicate)
		return nil, oops.Code(CodeUserExists).
			Wrap(ErrDuplicateUsername)
	case !errors.Is(err, ErrNotFound):
		RecordRegistration(StatusStoreError)
		return nil, s.storeUnavailable("get user by username", creds.Username, err)
	}

	hash, err := s.hashPassword(ctx, creds.Password)
	if err != nil {
		RecordRegistration(StatusStoreError)
		return nil, err
	}

	user, err := NewUser(creds.Username, hash, RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			RecordRegistration(StatusDuplicate)
			return nil, oops.Code(CodeUserExists).Wrap(ErrDuplicateUsername)
		}
		RecordRegistration(StatusStoreError)
		return nil, s.storeUnavailable("create user", creds.Username, err)
	}

	s.logger.Info("user registered", "username", user.Username, "user_id", user.ID.String())
	RecordRegistration(StatusSuccess)
	return user, nil
}

// Login authenticates a user and issues a session token. The returned
// plaintext token goes to the client (see SessionCookie); only its hash is
// stored.
//
// A missing user and a wrong password produce the same error code and take
// the same time, so callers cannot be used as a username oracle. Failed
// attempts count against the username regardless of whether it exists, for
// the same reason.
func (s *Service) Login(ctx context.Context, username, password, userAgent, ipAddress string) (*Session, string, error) {
	creds, err := ValidateCredentials(username, password)
	if err != nil {
		RecordLogin(StatusInvalidInput)
		return nil, "", err
	}

	if err := s.limiter.Check(ctx, creds.Username); err != nil {
		if hasCode(err, CodeRateLimited) {
			s.logger.Warn("login blocked by rate limiter", "username", creds.Username)
			RecordLogin(StatusRateLimited)
			return nil, "", err
		}
		RecordLogin(StatusStoreError)
		return nil, "", s.storeUnavailable("check rate limit", creds.Username, err)
	}

	user, lookupErr := s.users.GetByUsername(ctx, creds.Username)

	// Pick the hash to verify against: the real one, or a dummy so the
	// missing-user path still pays for a verification.
	targetHash := dummyPasswordHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case !errors.Is(lookupErr, ErrNotFound):
		RecordLogin(StatusStoreError)
		return nil, "", s.storeUnavailable("get user by username", creds.Username, lookupErr)
	}

	valid, verifyErr := s.verifyPassword(ctx, creds.Password, targetHash)
	if verifyErr != nil && userExists {
		RecordLogin(StatusStoreError)
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		if !userExists {
			s.logger.Debug("login failed: unknown username", "username", creds.Username)
		} else {
			s.logger.Debug("login failed: password mismatch", "username", creds.Username)
		}
		if err := s.limiter.RecordFailure(ctx, creds.Username); err != nil {
			s.logger.Error("recording login failure", "username", creds.Username, "error", err)
		}
		RecordLogin(StatusInvalidCredentials)
		return nil, "", oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
	}

	if err := s.limiter.Reset(ctx, creds.Username); err != nil {
		// Best effort; a stale counter only shortens the window.
		s.logger.Error("resetting failure counter", "username", creds.Username, "error", err)
	}

	s.maybeUpgradeHash(ctx, user, creds.Password)

	session, token, err := s.tokens.Issue(ctx, user.Username, userAgent, ipAddress)
	if err != nil {
		RecordLogin(StatusStoreError)
		return nil, "", err
	}

	s.logger.Info("login succeeded", "username", user.Username, "session_id", session.ID.String())
	RecordLogin(StatusSuccess)
	return session, token, nil
}

// Logout revokes the session token. Idempotent; unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ValidateToken resolves a session token to its owning username.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	return s.tokens.Verify(ctx, token)
}

// maybeUpgradeHash recomputes a legacy hash with the current scheme after a
// successful login. Best effort: login succeeds regardless.
func (s *Service) maybeUpgradeHash(ctx context.Context, user *User, password string) {
	if !s.hasher.NeedsUpgrade(user.PasswordHash) {
		return
	}
	newHash, err := s.hashPassword(ctx, password)
	if err != nil {
		s.logger.Error("rehashing password", "username", user.Username, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.logger.Error("storing upgraded password hash", "username", user.Username, "error", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.Info("password hash upgraded", "username", user.Username)
}

// hashPassword runs the hash behind the concurrency gate, respecting
// cancellation while waiting for a slot.
func (s *Service) hashPassword(ctx context.Context, password string) (string, error) {
	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	hash, err := s.hasher.Hash(password)
	RecordHashDuration(time.Since(start))
	return hash, err
}

// verifyPassword runs verification behind the concurrency gate; verifying
// costs a full hash computation.
func (s *Service) verifyPassword(ctx context.Context, password, hash string) (bool, error) {
	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	start := time.Now()
	ok, verr := s.hasher.Verify(password, hash)
	RecordHashDuration(time.Since(start))
	return ok, verr
}

func (s *Service) acquireHashSlot(ctx context.Context) (func(), error) {
	select {
	case s.hashGate <- struct{}{}:
		return func() { <-s.hashGate }, nil
	case <-ctx.Done():
		return nil, oops.Code("AUTH_CANCELLED").Wrap(ctx.Err())
	}
}

// storeUnavailable logs the detailed store failure server-side and returns
// a generic error that leaks nothing to the caller.
func (s *Service) storeUnavailable(operation, username string, err error) error {
	s.logger.Error("store operation failed",
		"operation", operation,
		"username", username,
		"error", err,
	)
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Errorf("service temporarily unavailable")
}

// hasCode reports whether err carries the given oops error code.
func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
