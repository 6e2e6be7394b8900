package memory

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStoreConfig configures the persistent memory store.
type SQLiteStoreConfig struct {
	// Path is the database file location. Parent directories are
	// created as needed.
	Path string

	// MaxEntries bounds the store; non-positive falls back to
	// DefaultMaxEntries.
	MaxEntries int
}

// SQLiteStore persists memory records to a SQLite database. Records
// survive process restarts; insertion order is preserved via a sequence
// column so eviction drops the oldest rows first.
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
}

// NewSQLiteStore opens (or creates) a persistent memory store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("memory: sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("memory: creating %q: %w", dir, err)
		}
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memory: open: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: create schema: %w", err)
	}

	return &SQLiteStore{db: db, maxEntries: maxEntries}, nil
}

// Put inserts or replaces a record, evicting the oldest beyond capacity.
// Replacing an existing key preserves its original insertion position.
func (s *SQLiteStore) Put(ctx context.Context, key string, value map[string]any) error {
	clean := strings.TrimSpace(key)
	if clean == "" {
		return errors.New("memory: key is required")
	}
	if value == nil {
		value = map[string]any{}
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: marshal value: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_entries (key, value, created_at, seq)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM memory_entries))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		clean,
		string(encoded),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("memory: put %q: %w", clean, err)
	}
	return s.evict(ctx)
}

func (s *SQLiteStore) evict(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_entries WHERE key IN (
			SELECT key FROM memory_entries ORDER BY seq ASC
			LIMIT (SELECT CASE WHEN COUNT(*) > ? THEN COUNT(*) - ? ELSE 0 END FROM memory_entries)
		)`,
		s.maxEntries,
		s.maxEntries,
	)
	if err != nil {
		return fmt.Errorf("memory: evict: %w", err)
	}
	return nil
}

// Get returns one record by key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, created_at FROM memory_entries WHERE key = ?`,
		strings.TrimSpace(key),
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// List returns all records in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, created_at FROM memory_entries ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("memory: list: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Len returns the number of stored records.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_entries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("memory: count: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		key       string
		rawValue  string
		createdAt string
	)
	if err := row.Scan(&key, &rawValue, &createdAt); err != nil {
		return Entry{}, err
	}

	value := make(map[string]any)
	if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
		return Entry{}, fmt.Errorf("memory: decode value for %q: %w", key, err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("memory: decode created_at for %q: %w", key, err)
	}
	return Entry{Key: key, Value: value, CreatedAt: parsed}, nil
}

// Ensure interface compliance at compile time.
var _ Store = (*SQLiteStore)(nil)
