// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"sync"
	"time"
)

// Memory store defaults.
const (
	// DefaultSessionCleanupInterval is how often the background goroutine
	// removes expired sessions and stale tombstones.
	DefaultSessionCleanupInterval = 5 * time.Minute

	// DefaultRevokedRetention is how long revoked tombstones are kept so
	// Verify can answer "revoked" instead of "not found".
	DefaultRevokedRetention = 24 * time.Hour
)

// MemorySessionStoreConfig configures a MemorySessionStore.
type MemorySessionStoreConfig struct {
	// CleanupInterval is the period of the background cleanup goroutine.
	// Defaults to DefaultSessionCleanupInterval if zero.
	CleanupInterval time.Duration

	// RevokedRetention is how long revoked tombstones survive.
	// Defaults to DefaultRevokedRetention if zero.
	RevokedRetention time.Duration
}

// MemorySessionStore implements SessionStore in process memory. It is safe
// for concurrent use and suitable for single-node deployments and tests;
// multi-node deployments should use the postgres or redis stores.
//
// The store runs a background goroutine to evict expired sessions and stale
// tombstones. Call Close() to stop it.
type MemorySessionStore struct {
	mu       sync.Mutex
	byHash   map[string]*Session
	activeBy map[string]string // username -> active token hash

	revokedRetention time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemorySessionStore creates a MemorySessionStore and starts its cleanup
// goroutine.
func NewMemorySessionStore(cfg MemorySessionStoreConfig) *MemorySessionStore {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultSessionCleanupInterval
	}
	retention := cfg.RevokedRetention
	if retention <= 0 {
		retention = DefaultRevokedRetention
	}

	s := &MemorySessionStore{
		byHash:           make(map[string]*Session),
		activeBy:         make(map[string]string),
		revokedRetention: retention,
		stopChan:         make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop(interval)

	return s
}

// Replace stores the session and revokes the username's prior active
// session under a single lock acquisition, so no interleaved lookup can see
// both tokens valid or neither.
func (s *MemorySessionStore) Replace(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if oldHash, ok := s.activeBy[session.Username]; ok {
		if old, ok := s.byHash[oldHash]; ok && !old.IsRevoked() {
			at := now
			old.RevokedAt = &at
		}
	}

	stored := *session
	s.byHash[session.TokenHash] = &stored
	s.activeBy[session.Username] = session.TokenHash
	return nil
}

// GetByTokenHash retrieves a session by token hash, tombstones included.
func (s *MemorySessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byHash[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

// Revoke marks the session revoked. Unknown or already-revoked sessions are
// ignored.
func (s *MemorySessionStore) Revoke(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byHash[tokenHash]
	if !ok || session.IsRevoked() {
		return nil
	}
	session.RevokedAt = &at
	if s.activeBy[session.Username] == tokenHash {
		delete(s.activeBy, session.Username)
	}
	return nil
}

// Cleanup removes expired sessions and tombstones older than the retention
// window. Called automatically by the background goroutine; exposed for
// tests and manual maintenance.
func (s *MemorySessionStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for hash, session := range s.byHash {
		stale := session.IsExpiredAt(now) ||
			(session.RevokedAt != nil && now.Sub(*session.RevokedAt) > s.revokedRetention)
		if !stale {
			continue
		}
		delete(s.byHash, hash)
		if s.activeBy[session.Username] == hash {
			delete(s.activeBy, session.Username)
		}
	}
}

// Len returns the number of stored sessions, tombstones included. Useful
// for tests and monitoring.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

func (s *MemorySessionStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Close stops the cleanup goroutine. It blocks until the goroutine has
// stopped and is safe to call more than once.
func (s *MemorySessionStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
}

// Compile-time interface check.
var _ SessionStore = (*MemorySessionStore)(nil)
