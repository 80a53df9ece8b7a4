// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"unicode/utf8"

	"github.com/samber/oops"
)

// Credential length constraints.
const (
	MaxUsernameLength = 50
	MaxPasswordLength = 70
)

// Credentials is a validated username/password pair. It is transient: the
// password is handed to a PasswordHasher and then discarded, never stored.
type Credentials struct {
	Username string
	Password string
}

// ValidateCredentials checks raw form input and returns Credentials.
// Validation is fail-fast: the first violation is reported, with the
// offending field in the error context.
//
// Usernames are not trimmed or case-folded here; stores match them
// case-insensitively (see UserStore.GetByUsername).
func ValidateCredentials(username, password string) (Credentials, error) {
	if username == "" {
		return Credentials{}, oops.Code(CodeInvalidInput).
			With("field", "username").
			Errorf("username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return Credentials{}, oops.Code(CodeInvalidInput).
			With("field", "username").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if password == "" {
		return Credentials{}, oops.Code(CodeInvalidInput).
			With("field", "password").
			Errorf("password is required")
	}
	if utf8.RuneCountInString(password) > MaxPasswordLength {
		return Credentials{}, oops.Code(CodeInvalidInput).
			With("field", "password").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return Credentials{Username: username, Password: password}, nil
}
