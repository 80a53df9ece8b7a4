// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the coarse authorization level attached to a user record.
type Role string

// Known roles. Registration always assigns RoleUser; RoleAdmin accounts are
// provisioned out of band.
const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// User is a stored account record. PasswordHash is a PHC/MCF-encoded hash,
// never the raw password.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User record.
func NewUser(username, passwordHash string, role Role) (*User, error) {
	if username == "" {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "username").
			Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).
			Errorf("password hash cannot be empty")
	}
	if role != RoleAdmin && role != RoleUser {
		return nil, oops.Code(CodeInvalidInput).
			With("role", string(role)).
			Errorf("unknown role")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserStore manages user persistence. The store's uniqueness constraint on
// username is authoritative: Create must return ErrDuplicateUsername when the
// name is taken, even under concurrent registration.
type UserStore interface {
	// Create stores a new user. Returns ErrDuplicateUsername (wrapped) if the
	// username is already taken.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by username (case-insensitive).
	// Returns ErrNotFound (wrapped) if no such user exists.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePasswordHash replaces the stored hash for a user, used when a
	// legacy hash is upgraded after a successful login.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error
}
