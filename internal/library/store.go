package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"bandstand/internal/config"
)

// Store manages library persistence backed by SQLite. One database holds
// the music graph, external references and the research queue.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the underlying connection for packages that layer their own
// queries on the shared database (provenance, dedup, research).
func (s *Store) DB() *sql.DB {
	return s.db
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Stats summarizes library row counts for status surfaces.
type Stats struct {
	Songs        int64
	Performers   int64
	Recordings   int64
	Releases     int64
	ExternalRefs int64
}

// LibraryStats returns row counts across the core tables.
func (s *Store) LibraryStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	counts := []struct {
		table  string
		target *int64
	}{
		{"songs", &stats.Songs},
		{"performers", &stats.Performers},
		{"recordings", &stats.Recordings},
		{"releases", &stats.Releases},
		{"external_refs", &stats.ExternalRefs},
	}
	for _, count := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+count.table).Scan(count.target); err != nil {
			return nil, fmt.Errorf("count %s: %w", count.table, err)
		}
	}
	return stats, nil
}
