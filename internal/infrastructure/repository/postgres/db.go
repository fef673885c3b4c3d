package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// schemaLockID serialises bootstrap DDL across api and worker startups.
const schemaLockID int64 = 2026100901

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS classification_outcomes (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	extension TEXT NOT NULL,
	content_type TEXT,
	success BOOLEAN NOT NULL,
	label TEXT,
	step SMALLINT,
	code TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_key TEXT,
	duration_ms DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON classification_outcomes(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_outcomes_label ON classification_outcomes(label) WHERE success;

CREATE TABLE IF NOT EXISTS review_queue (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	storage_key TEXT NOT NULL,
	predicted_label TEXT,
	predicted_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	min_confidence DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	resolved_as TEXT,
	escalated_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_queue_pending ON review_queue(escalated_at) WHERE status = 'pending';
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// nullString maps "" to SQL NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
