// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"net/http"
	"runtime"
	"time"
)

// SessionCookieName is the cookie the transport layer is expected to use
// for session tokens.
const SessionCookieName = "session"

// Config holds the tunables of the credential core. It is passed in
// explicitly at construction; nothing in this package reads the
// environment.
//
// Zero values select the documented defaults, so Config{} is usable as-is.
type Config struct {
	// TokenTTL is the server-side session lifetime.
	// Defaults to DefaultTokenTTL (30 days).
	TokenTTL time.Duration

	// RateLimitThreshold is the failed-attempt count that blocks a key.
	// Defaults to DefaultFailureThreshold (5).
	RateLimitThreshold int

	// RateLimitWindow is the window over which failures accumulate.
	// Defaults to DefaultFailureWindow (15 minutes).
	RateLimitWindow time.Duration

	// BcryptCost is the cost factor for the default hasher.
	// Defaults to DefaultBcryptCost (10).
	BcryptCost int

	// HashConcurrency bounds how many password hashes may run at once,
	// keeping the deliberately slow hash off the dispatch path.
	// Defaults to GOMAXPROCS.
	HashConcurrency int

	// SecureCookies sets the Secure flag on cookies built by
	// SessionCookie. Enable in production deployments behind TLS.
	SecureCookies bool
}

// withDefaults returns a copy of the config with zero values replaced by
// defaults.
func (c Config) withDefaults() Config {
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.RateLimitThreshold <= 0 {
		c.RateLimitThreshold = DefaultFailureThreshold
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultFailureWindow
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	if c.HashConcurrency <= 0 {
		c.HashConcurrency = runtime.GOMAXPROCS(0)
	}
	return c
}

// SessionCookie builds the cookie for an issued token: httpOnly,
// SameSite=Strict, path /, max-age matching the token TTL, Secure per
// config. The caller owns actually setting it on the response.
func SessionCookie(token string, cfg Config) *http.Cookie {
	cfg = cfg.withDefaults()
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   cfg.SecureCookies,
	}
}
