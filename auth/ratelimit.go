// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Rate limiting defaults.
const (
	// DefaultFailureThreshold is the number of failed attempts within the
	// window that blocks further attempts for the same key.
	DefaultFailureThreshold = 5

	// DefaultFailureWindow is the window over which failures accumulate.
	DefaultFailureWindow = 15 * time.Minute

	// DefaultLimiterCleanupInterval is how often stale counters are evicted.
	DefaultLimiterCleanupInterval = 5 * time.Minute
)

// FailureLimiter bounds failed authentication attempts per key (username or
// client address). Implementations must update counters atomically per key:
// two concurrent failures may not both slip under a threshold meant to
// block the second.
type FailureLimiter interface {
	// Check returns nil if the key may attempt authentication, or a
	// CodeRateLimited error carrying "retry_after" context if blocked.
	Check(ctx context.Context, key string) error

	// RecordFailure counts one failed attempt against the key.
	RecordFailure(ctx context.Context, key string) error

	// Reset clears the key's counter after a successful authentication.
	Reset(ctx context.Context, key string) error
}

// WindowLimiterConfig configures a WindowLimiter.
type WindowLimiterConfig struct {
	// Threshold is the failure count that triggers blocking.
	// Defaults to DefaultFailureThreshold if zero or negative.
	Threshold int

	// Window is the fixed window over which failures accumulate.
	// Defaults to DefaultFailureWindow if zero or negative.
	Window time.Duration

	// CleanupInterval is the period of the background eviction goroutine.
	// Defaults to DefaultLimiterCleanupInterval if zero.
	CleanupInterval time.Duration
}

// failureCounter tracks failures for one key within its current window.
// Created lazily on first failure.
type failureCounter struct {
	count       int
	windowStart time.Time
}

// WindowLimiter implements FailureLimiter with fixed per-key windows kept
// in process memory. It is safe for concurrent use.
//
// The limiter runs a background goroutine to evict counters whose window
// has lapsed, keeping memory bounded under probing from many keys. Call
// Close() to stop the goroutine.
type WindowLimiter struct {
	mu        sync.Mutex
	counters  map[string]*failureCounter
	threshold int
	window    time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Metrics gauge for tracked key count (nil if no registry provided)
	keysGauge prometheus.Gauge
}

// NewWindowLimiter creates a WindowLimiter with the given configuration and
// starts its eviction goroutine. Call Close() to stop it.
func NewWindowLimiter(cfg WindowLimiterConfig) *WindowLimiter {
	return newWindowLimiter(cfg, nil)
}

// NewWindowLimiterWithRegistry additionally registers a gauge of tracked
// keys with the provided Prometheus registry.
func NewWindowLimiterWithRegistry(cfg WindowLimiterConfig, reg prometheus.Registerer) *WindowLimiter {
	return newWindowLimiter(cfg, reg)
}

func newWindowLimiter(cfg WindowLimiterConfig, reg prometheus.Registerer) *WindowLimiter {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultFailureWindow
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultLimiterCleanupInterval
	}

	l := &WindowLimiter{
		counters:  make(map[string]*failureCounter),
		threshold: threshold,
		window:    window,
		stopChan:  make(chan struct{}),
	}

	if reg != nil {
		l.keysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatehouse_ratelimiter_keys",
			Help: "Current number of tracked rate limiter keys",
		})
		reg.MustRegister(l.keysGauge)
	}

	l.wg.Add(1)
	go l.cleanupLoop(cleanupInterval)

	return l
}

// Check reports whether the key is currently blocked.
func (l *WindowLimiter) Check(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter, ok := l.counters[key]
	if !ok {
		return nil
	}

	now := time.Now()
	if now.Sub(counter.windowStart) >= l.window {
		// Window lapsed; the counter is stale and will be evicted.
		return nil
	}
	if counter.count < l.threshold {
		return nil
	}

	retryAfter := l.window - now.Sub(counter.windowStart)
	return oops.Code(CodeRateLimited).
		With("retry_after", retryAfter).
		Errorf("too many failed attempts, retry in %s", retryAfter.Round(time.Second))
}

// RecordFailure counts one failure against the key, starting a fresh window
// if the previous one has lapsed.
func (l *WindowLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	counter, ok := l.counters[key]
	if !ok || now.Sub(counter.windowStart) >= l.window {
		l.counters[key] = &failureCounter{count: 1, windowStart: now}
		return nil
	}
	counter.count++
	return nil
}

// Reset clears the key's counter.
func (l *WindowLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}

// KeyCount returns the number of tracked keys. Useful for tests and
// monitoring.
func (l *WindowLimiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// Cleanup evicts counters whose window has lapsed. Called automatically by
// the background goroutine; exposed for tests.
func (l *WindowLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, counter := range l.counters {
		if now.Sub(counter.windowStart) >= l.window {
			delete(l.counters, key)
		}
	}

	if l.keysGauge != nil {
		l.keysGauge.Set(float64(len(l.counters)))
	}
}

func (l *WindowLimiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Close stops the eviction goroutine. Safe to call more than once.
func (l *WindowLimiter) Close() {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
}

// Compile-time interface check.
var _ FailureLimiter = (*WindowLimiter)(nil)
