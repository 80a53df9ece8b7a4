// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package redis provides Redis-backed implementations of the auth package's
// failure limiter and session store, for deployments where login state must
// be shared across nodes.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// Key prefixes. Everything this package writes lives under gatehouse:.
const (
	sessionKeyPrefix = "gatehouse:sess:"
	activeKeyPrefix  = "gatehouse:active:"
	failureKeyPrefix = "gatehouse:fail:"
)

// NewClient returns a configured go-redis client from a URL
// (e.g. redis://localhost:6379/0) and verifies connectivity.
func NewClient(redisURL string) (*goredis.Client, error) {
	if redisURL == "" {
		return nil, oops.Code("REDIS_CONNECT_FAILED").Errorf("empty redis url")
	}
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("operation", "parse redis url").
			Wrap(err)
	}

	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("operation", "ping redis").
			Wrap(err)
	}

	return client, nil
}
