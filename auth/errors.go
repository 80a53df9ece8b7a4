// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned by stores when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned by UserStore.Create when the username
	// is already taken. Stores derive it from their uniqueness constraint so
	// concurrent registrations cannot both succeed.
	ErrDuplicateUsername = errors.New("username already taken")
)

// Error codes attached to oops errors crossing the package boundary.
// errutil.HTTPStatus maps them to response statuses.
const (
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUserExists         = "AUTH_USER_EXISTS"
	CodeRateLimited        = "AUTH_RATE_LIMITED"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeTokenNotFound      = "AUTH_TOKEN_NOT_FOUND"
	CodeTokenRevoked       = "AUTH_TOKEN_REVOKED"
)
