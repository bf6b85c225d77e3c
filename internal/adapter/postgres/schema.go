package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scrape_results (
		id            TEXT PRIMARY KEY,
		mobile_number TEXT NOT NULL,
		outcome       TEXT NOT NULL,
		result        JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_scrape_results_mobile_created
		ON scrape_results (mobile_number, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS chat_history (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL,
		query     TEXT NOT NULL,
		response  TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		rating    INTEGER,
		rated_at  TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_history_user_timestamp
		ON chat_history (user_id, timestamp);`,
}

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables the service needs if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
