// Package memory provides the agent's memory component: a bounded
// key/value store of JSON-shaped records. Two backends exist, an
// in-process store and a SQLite-backed store used when persistence is
// enabled. Both evict the oldest entries once the configured capacity is
// exceeded.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a store when no capacity is configured.
const DefaultMaxEntries = 1000

// Entry is one memory record.
type Entry struct {
	Key       string         `json:"key"`
	Value     map[string]any `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the memory component contract.
type Store interface {
	// Put inserts or replaces a record. Insertion beyond capacity
	// evicts the oldest records.
	Put(ctx context.Context, key string, value map[string]any) error

	// Get returns one record by key.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// List returns all records in insertion order.
	List(ctx context.Context) ([]Entry, error)

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Close releases backing resources.
	Close() error
}

// MemStore is an in-process bounded memory store.
type MemStore struct {
	mu         sync.RWMutex
	maxEntries int
	items      map[string]Entry
	order      []string // insertion order, oldest first
	now        func() time.Time
}

// NewMemStore creates an empty in-process store with the given capacity.
// Non-positive capacities fall back to DefaultMaxEntries.
func NewMemStore(maxEntries int) *MemStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemStore{
		maxEntries: maxEntries,
		items:      make(map[string]Entry),
		now:        time.Now,
	}
}

// Put inserts or replaces a record, evicting the oldest beyond capacity.
func (s *MemStore) Put(ctx context.Context, key string, value map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := strings.TrimSpace(key)
	if clean == "" {
		return errors.New("memory: key is required")
	}

	cloned := make(map[string]any, len(value))
	for k, v := range value {
		cloned[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[clean]; !exists {
		s.order = append(s.order, clean)
	}
	s.items[clean] = Entry{Key: clean, Value: cloned, CreatedAt: s.now()}

	for len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	return nil
}

// Get returns one record by key.
func (s *MemStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[strings.TrimSpace(key)]
	return entry, ok, nil
}

// List returns all records in insertion order.
func (s *MemStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Close is a no-op for the in-process store.
func (s *MemStore) Close() error { return nil }

// Ensure interface compliance at compile time.
var _ Store = (*MemStore)(nil)
