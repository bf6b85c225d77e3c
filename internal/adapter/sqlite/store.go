package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is an embedded database holding scrape results and chat history.
// Timestamps are stored as Unix nanoseconds so that ORDER BY is exact.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" a single database and serialises writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scrape_results (
  id TEXT PRIMARY KEY,
  mobile_number TEXT NOT NULL,
  outcome TEXT NOT NULL,
  result TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_scrape_results_mobile_created ON scrape_results (mobile_number, created_at);`,
		`CREATE TABLE IF NOT EXISTS chat_history (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  query TEXT NOT NULL,
  response TEXT NOT NULL,
  timestamp INTEGER NOT NULL,
  rating INTEGER,
  rated_at INTEGER
);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_history_user_timestamp ON chat_history (user_id, timestamp);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ScrapeResults returns the scrape result repository view of the store.
func (s *Store) ScrapeResults() *ScrapeResultRepo { return &ScrapeResultRepo{db: s.db} }

// ChatRecords returns the chat repository view of the store.
func (s *Store) ChatRecords() *ChatRecordRepo { return &ChatRecordRepo{db: s.db} }
