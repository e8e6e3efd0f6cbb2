package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// TimeFormat is RFC 3339 with fixed-width nanoseconds so that the textual
// processed_at column sorts chronologically.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps DB access. The database is a single sqlite file, created on
// first open; migrations run every time and are idempotent.
type Store struct {
	DB *sql.DB
}

// Open accepts either a bare file path or a sqlite: URL.
func Open(databaseURL string) (*Store, error) {
	path := strings.TrimPrefix(databaseURL, "sqlite:")
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; a second connection would only turn
	// contention into SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	s := &Store{DB: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.DB.PingContext(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS pending_bets (
		bet_id TEXT PRIMARY KEY,
		user_seed TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		node_id TEXT NOT NULL,
		heads BOOLEAN NOT NULL,
		vrf_proof TEXT NOT NULL,
		processing_time_ms INTEGER NOT NULL,
		processed_at TEXT NOT NULL,
		retry_count INTEGER DEFAULT 0,
		status TEXT DEFAULT 'pending',
		tx_signature TEXT NULL,
		settled_at TEXT NULL,
		failed_at TEXT NULL,
		error_message TEXT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_batches (
		batch_id TEXT PRIMARY KEY,
		bet_count INTEGER NOT NULL,
		processing_time_ms INTEGER NOT NULL,
		tx_signature TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_bets_status ON pending_bets(status)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_bets_processed_at ON pending_bets(processed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_bets_retry_count ON pending_bets(retry_count)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_batches_created_at ON settlement_batches(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_batches_success ON settlement_batches(success)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
