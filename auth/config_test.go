// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gatehouse/gatehouse/auth"
)

func TestSessionCookie_Defaults(t *testing.T) {
	cookie := auth.SessionCookie("plaintext-token", auth.Config{})

	assert.Equal(t, auth.SessionCookieName, cookie.Name)
	assert.Equal(t, "plaintext-token", cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int(auth.DefaultTokenTTL/time.Second), cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
}

func TestSessionCookie_CustomConfig(t *testing.T) {
	cookie := auth.SessionCookie("tok", auth.Config{
		TokenTTL:      time.Hour,
		SecureCookies: true,
	})

	assert.Equal(t, 3600, cookie.MaxAge)
	assert.True(t, cookie.Secure)
}
