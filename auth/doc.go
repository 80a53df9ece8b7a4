// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the credential-issuance core: input validation,
// password hashing, opaque session tokens, and failed-attempt rate limiting.
//
// # Domain Types
//
// Domain types (User, Session, Credentials) should be created using their
// respective constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - ValidateCredentials - produces Credentials from raw form input
//   - Issuer.Issue - creates a Session and its plaintext token
//
// Direct struct initialization bypasses validation and may create invalid
// state. Store implementations receive pre-validated types.
//
// # Service
//
// Service orchestrates Register, Login, Logout and ValidateToken over a
// UserStore, a TokenIssuer, a PasswordHasher and a FailureLimiter. Transport
// concerns (routing, form decoding, cookie handling) stay with the caller;
// SessionCookie builds a cookie from an issued token for convenience.
//
// Raw passwords are accepted as arguments, hashed, and discarded. They are
// never logged and never persisted.
package auth
