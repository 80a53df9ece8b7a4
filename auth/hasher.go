// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the original deployments used.
const DefaultBcryptCost = 10

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeInvalidInput).Errorf("password cannot be empty")

// PasswordHasher provides one-way password hashing and verification.
// Hashing is CPU-bound and intentionally slow; Service runs it behind a
// bounded concurrency gate so it cannot starve the caller's dispatch path.
type PasswordHasher interface {
	// Hash produces a salted, encoded hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error on
	// an invalid hash. The comparison is constant-time.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash was produced by a weaker or
	// different scheme and should be recomputed on the next successful login.
	NeedsUpgrade(hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt. It is the default
// scheme; cost 10 mirrors the original deployment.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's valid
// range falls back to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a bcrypt hash of the password. bcrypt silently truncates
// input beyond 72 bytes; ValidateCredentials caps passwords well below that.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify checks the password against a bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
}

// NeedsUpgrade reports hashes that are not bcrypt, or bcrypt below the
// configured cost.
func (h *BcryptHasher) NeedsUpgrade(hash string) bool {
	if !strings.HasPrefix(hash, "$2") {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// Argon2idHasher implements PasswordHasher using argon2id, for deployments
// migrating off bcrypt. Hashes are encoded in PHC string format.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password with a random per-call salt.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks the password against a PHC-encoded argon2id hash, honouring
// the parameters recorded in the hash itself.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	salt, expected, timeCost, memory, threads, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id (e.g., bcrypt).
func (h *Argon2idHasher) NeedsUpgrade(hash string) bool {
	return !strings.HasPrefix(hash, "$argon2id$")
}

// decodeArgon2id parses a PHC argon2id string into its salt, key, and cost
// parameters.
func decodeArgon2id(encodedHash string) (salt, key []byte, timeCost, memory uint32, threads uint8, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").
			Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var rawThreads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &rawThreads); err != nil {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	// Guard the uint8 conversion against silent truncation.
	if rawThreads == 0 || rawThreads > 255 {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").
			Errorf("threads value %d out of range", rawThreads)
	}
	threads = uint8(rawThreads)

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 {
		return nil, nil, 0, 0, 0, oops.Code("AUTH_INVALID_HASH").Errorf("empty hash key")
	}
	return salt, key, timeCost, memory, threads, nil
}

// Compile-time interface checks.
var (
	_ PasswordHasher = (*BcryptHasher)(nil)
	_ PasswordHasher = (*Argon2idHasher)(nil)
)
