// Package sqlite implements the tourist directory, alert store, location
// store and audit sink on a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a SQLite-backed persistence layer. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	memory := path == ":memory:"
	if !memory {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS tourists (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			phone_no TEXT NOT NULL,
			nationality TEXT NOT NULL DEFAULT '',
			itinerary TEXT NOT NULL DEFAULT '[]',
			emergency_contacts TEXT NOT NULL DEFAULT '[]',
			valid_from TEXT NOT NULL,
			valid_to TEXT NOT NULL,
			safety_score INTEGER NOT NULL DEFAULT 75,
			status TEXT NOT NULL,
			last_seen TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			tourist_id TEXT NOT NULL,
			type TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			severity TEXT NOT NULL,
			sent_to TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL,
			response_time INTEGER,
			resolved_at TEXT,
			resolved_by TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			tourist_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			accuracy REAL,
			altitude REAL,
			speed REAL,
			heading REAL
		);

		CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			tourist_id TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			user_role TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			alert_id TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_tourist_ts ON alerts(tourist_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_locations_tourist_ts ON locations(tourist_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_tourist_ts ON audit_logs(tourist_id, timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// wrap classifies a driver error: missing rows become ErrNotFound, anything
// else ErrUpstreamUnavailable.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(tsLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(tsLayout, s)
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
