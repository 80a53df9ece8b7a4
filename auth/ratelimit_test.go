// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gatehouse/gatehouse/auth"
	"github.com/gatehouse/gatehouse/errutil"
)

func TestWindowLimiter_BlocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 3,
		Window:    time.Minute,
	})
	defer limiter.Close()

	for range 2 {
		require.NoError(t, limiter.RecordFailure(ctx, "alice"))
		assert.NoError(t, limiter.Check(ctx, "alice"))
	}

	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	err := limiter.Check(ctx, "alice")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeRateLimited)

	// Other keys are unaffected.
	assert.NoError(t, limiter.Check(ctx, "bob"))
}

func TestWindowLimiter_RetryAfterHint(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 1,
		Window:    time.Minute,
	})
	defer limiter.Close()

	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	err := limiter.Check(ctx, "alice")
	require.Error(t, err)

	retryAfter, ok := errutil.RetryAfter(err)
	require.True(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestWindowLimiter_WindowLapse(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 1,
		Window:    10 * time.Millisecond,
	})
	defer limiter.Close()

	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	require.Error(t, limiter.Check(ctx, "alice"))

	time.Sleep(15 * time.Millisecond)
	assert.NoError(t, limiter.Check(ctx, "alice"))

	// A failure after the lapse starts a fresh window at count 1.
	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	assert.Error(t, limiter.Check(ctx, "alice"))
}

func TestWindowLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 1,
		Window:    time.Minute,
	})
	defer limiter.Close()

	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	require.Error(t, limiter.Check(ctx, "alice"))

	require.NoError(t, limiter.Reset(ctx, "alice"))
	assert.NoError(t, limiter.Check(ctx, "alice"))
}

func TestWindowLimiter_Cleanup(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 5,
		Window:    10 * time.Millisecond,
	})
	defer limiter.Close()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, limiter.RecordFailure(ctx, key))
	}
	assert.Equal(t, 3, limiter.KeyCount())

	time.Sleep(15 * time.Millisecond)
	limiter.Cleanup()
	assert.Equal(t, 0, limiter.KeyCount())
}

func TestWindowLimiter_ConcurrentFailures(t *testing.T) {
	ctx := context.Background()
	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		Threshold: 5,
		Window:    time.Minute,
	})
	defer limiter.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limiter.RecordFailure(ctx, "alice")
		}()
	}
	wg.Wait()

	// All ten failures landed on one counter; the key is blocked.
	err := limiter.Check(ctx, "alice")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeRateLimited)
	assert.Equal(t, 1, limiter.KeyCount())
}

func TestWindowLimiter_WithRegistry(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	limiter := auth.NewWindowLimiterWithRegistry(auth.WindowLimiterConfig{
		Threshold: 5,
		Window:    time.Minute,
	}, reg)
	defer limiter.Close()

	require.NoError(t, limiter.RecordFailure(ctx, "alice"))
	limiter.Cleanup() // refreshes the gauge

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "gatehouse_ratelimiter_keys" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "gauge not registered")
}

func TestWindowLimiter_CloseStopsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := auth.NewWindowLimiter(auth.WindowLimiterConfig{
		CleanupInterval: time.Millisecond,
	})
	time.Sleep(5 * time.Millisecond)
	limiter.Close()
	limiter.Close() // safe to call twice
}
