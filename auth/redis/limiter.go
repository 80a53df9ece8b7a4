// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/auth"
)

// recordFailureScript increments the key's failure counter and arms the
// window expiry on the first failure only, so the window is fixed rather
// than sliding.
var recordFailureScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Threshold is the failure count that triggers blocking.
	// Defaults to auth.DefaultFailureThreshold if zero or negative.
	Threshold int

	// Window is the fixed window over which failures accumulate.
	// Defaults to auth.DefaultFailureWindow if zero or negative.
	Window time.Duration
}

// Limiter implements auth.FailureLimiter on Redis, sharing failure counts
// across nodes. Counters expire with their window, so memory stays bounded
// without a cleanup job.
type Limiter struct {
	client    goredis.UniversalClient
	threshold int
	window    time.Duration
}

// NewLimiter creates a Limiter with the given configuration.
func NewLimiter(client goredis.UniversalClient, cfg LimiterConfig) *Limiter {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = auth.DefaultFailureThreshold
	}
	window := cfg.Window
	if window <= 0 {
		window = auth.DefaultFailureWindow
	}
	return &Limiter{client: client, threshold: threshold, window: window}
}

// Check reports whether the key is currently blocked. The remaining window
// TTL becomes the retry_after hint.
func (l *Limiter) Check(ctx context.Context, key string) error {
	redisKey := failureKeyPrefix + key

	count, err := l.client.Get(ctx, redisKey).Int()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	if err != nil {
		return oops.Code("LIMITER_CHECK_FAILED").
			With("operation", "get failure count").
			Wrap(err)
	}
	if count < l.threshold {
		return nil
	}

	retryAfter, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return oops.Code("LIMITER_CHECK_FAILED").
			With("operation", "get failure ttl").
			Wrap(err)
	}
	if retryAfter < 0 {
		// Key expired between GET and PTTL; the window is over.
		return nil
	}

	return oops.Code(auth.CodeRateLimited).
		With("retry_after", retryAfter).
		Errorf("too many failed attempts, retry in %s", retryAfter.Round(time.Second))
}

// RecordFailure counts one failed attempt against the key.
func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	err := recordFailureScript.Run(ctx, l.client,
		[]string{failureKeyPrefix + key},
		l.window.Milliseconds(),
	).Err()
	if err != nil {
		return oops.Code("LIMITER_RECORD_FAILED").
			With("operation", "record failure").
			Wrap(err)
	}
	return nil
}

// Reset clears the key's counter.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, failureKeyPrefix+key).Err(); err != nil {
		return oops.Code("LIMITER_RESET_FAILED").
			With("operation", "reset failure count").
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.FailureLimiter = (*Limiter)(nil)
