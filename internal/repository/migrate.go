package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/policy-intake/internal/common"
)

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		id TEXT PRIMARY KEY,
		current_step TEXT NOT NULL,
		snapshot JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wizard_sessions_updated_at_idx ON wizard_sessions (updated_at)`,
	`CREATE TABLE IF NOT EXISTS policy_documents (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		size BIGINT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		completeness_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ NULL,
		UNIQUE (session_id, sha256)
	)`,
	`CREATE TABLE IF NOT EXISTS policy_submissions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		policy_number TEXT NOT NULL,
		client_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		processed_with_ai BOOLEAN NOT NULL,
		status TEXT NOT NULL,
		velneo_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS policy_submissions_created_at_idx ON policy_submissions (created_at)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS wizard_sessions (
		id TEXT PRIMARY KEY,
		current_step TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wizard_sessions_updated_at_idx ON wizard_sessions (updated_at)`,
	`CREATE TABLE IF NOT EXISTS policy_documents (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		size INTEGER NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		completeness_percent REAL NOT NULL DEFAULT 0,
		uploaded_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP NULL,
		UNIQUE (session_id, sha256)
	)`,
	`CREATE TABLE IF NOT EXISTS policy_submissions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		policy_number TEXT NOT NULL,
		client_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		processed_with_ai BOOLEAN NOT NULL,
		status TEXT NOT NULL,
		velneo_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS policy_submissions_created_at_idx ON policy_submissions (created_at)`,
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) error {
	var stmts []string
	switch drv.Dialect() {
	case dialect.Postgres:
		stmts = postgresDDL
	case dialect.SQLite:
		stmts = sqliteDDL
	default:
		return fmt.Errorf("migrate: unsupported dialect %s", drv.Dialect())
	}
	for _, stmt := range stmts {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			logger.Error("db.migrate.failed", "error", err)
			return common.WrapError(err, "migrate")
		}
	}
	logger.Info("db.migrate.ok", "dialect", drv.Dialect(), "statements", len(stmts))
	return nil
}
