// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gatehouse/gatehouse/auth"
	"github.com/gatehouse/gatehouse/auth/postgres"
)

// setupPostgresContainer starts a PostgreSQL container and applies the schema.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gatehouse_test"),
		tcpostgres.WithUsername("gatehouse"),
		tcpostgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("Postgres stores", Ordered, func() {
	var pool *pgxpool.Pool
	var cleanup func()
	var users *postgres.UserStore
	var sessions *postgres.SessionStore

	BeforeAll(func() {
		var err error
		pool, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		users = postgres.NewUserStore(pool)
		sessions = postgres.NewSessionStore(pool)
	})

	AfterAll(func() {
		cleanup()
	})

	AfterEach(func() {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `TRUNCATE sessions`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `TRUNCATE users`)
		Expect(err).NotTo(HaveOccurred())
	})

	newUser := func(username string) *auth.User {
		user, err := auth.NewUser(username, "$2a$10$testhash", auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	newSession := func(username string) *auth.Session {
		_, hash, err := auth.GenerateToken()
		Expect(err).NotTo(HaveOccurred())
		now := time.Now().UTC().Truncate(time.Microsecond)
		return &auth.Session{
			ID:        ulid.Make(),
			Username:  username,
			TokenHash: hash,
			UserAgent: "test-agent",
			IPAddress: "127.0.0.1",
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Hour),
		}
	}

	Describe("UserStore", func() {
		It("round-trips a user", func() {
			ctx := context.Background()
			user := newUser("alice")
			Expect(users.Create(ctx, user)).To(Succeed())

			got, err := users.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.Username).To(Equal("alice"))
			Expect(got.Role).To(Equal(auth.RoleUser))
		})

		It("matches usernames case-insensitively", func() {
			ctx := context.Background()
			Expect(users.Create(ctx, newUser("Alice"))).To(Succeed())

			got, err := users.GetByUsername(ctx, "aLiCe")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Username).To(Equal("Alice"))
		})

		It("rejects duplicate usernames case-insensitively", func() {
			ctx := context.Background()
			Expect(users.Create(ctx, newUser("alice"))).To(Succeed())

			err := users.Create(ctx, newUser("ALICE"))
			Expect(err).To(MatchError(auth.ErrDuplicateUsername))
		})

		It("returns not found for unknown users", func() {
			_, err := users.GetByUsername(context.Background(), "ghost")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("updates the password hash", func() {
			ctx := context.Background()
			user := newUser("alice")
			Expect(users.Create(ctx, user)).To(Succeed())

			Expect(users.UpdatePasswordHash(ctx, user.ID, "$2a$10$newhash")).To(Succeed())

			got, err := users.GetByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(Equal("$2a$10$newhash"))
		})
	})

	Describe("SessionStore", func() {
		It("round-trips a session", func() {
			ctx := context.Background()
			session := newSession("alice")
			Expect(sessions.Replace(ctx, session)).To(Succeed())

			got, err := sessions.GetByTokenHash(ctx, session.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Username).To(Equal("alice"))
			Expect(got.IsRevoked()).To(BeFalse())
		})

		It("revokes the prior session on replace", func() {
			ctx := context.Background()
			first := newSession("alice")
			second := newSession("alice")
			Expect(sessions.Replace(ctx, first)).To(Succeed())
			Expect(sessions.Replace(ctx, second)).To(Succeed())

			old, err := sessions.GetByTokenHash(ctx, first.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(old.IsRevoked()).To(BeTrue())

			current, err := sessions.GetByTokenHash(ctx, second.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.IsRevoked()).To(BeFalse())
		})

		It("revoke is idempotent", func() {
			ctx := context.Background()
			session := newSession("alice")
			Expect(sessions.Replace(ctx, session)).To(Succeed())

			at := time.Now()
			Expect(sessions.Revoke(ctx, session.TokenHash, at)).To(Succeed())
			Expect(sessions.Revoke(ctx, session.TokenHash, at.Add(time.Hour))).To(Succeed())
			Expect(sessions.Revoke(ctx, "unknown", at)).To(Succeed())

			got, err := sessions.GetByTokenHash(ctx, session.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RevokedAt.Sub(at)).To(BeNumerically("<", time.Second))
		})

		It("deletes expired sessions and stale tombstones", func() {
			ctx := context.Background()
			expired := newSession("alice")
			expired.ExpiresAt = time.Now().Add(-time.Hour)
			Expect(sessions.Replace(ctx, expired)).To(Succeed())

			live := newSession("bob")
			Expect(sessions.Replace(ctx, live)).To(Succeed())

			n, err := sessions.DeleteExpired(ctx, 24*time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = sessions.GetByTokenHash(ctx, expired.TokenHash)
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = sessions.GetByTokenHash(ctx, live.TokenHash)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
