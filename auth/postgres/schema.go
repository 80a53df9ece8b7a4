// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	_ "embed"

	"github.com/samber/oops"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates the users and sessions tables if they do not exist.
// The statements are idempotent; running it on every startup is fine.
func ApplySchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return oops.Code("DB_SCHEMA_FAILED").
			With("operation", "apply schema").
			Wrap(err)
	}
	return nil
}
