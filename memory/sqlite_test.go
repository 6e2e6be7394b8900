package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T, path string, maxEntries int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteStoreConfig{Path: path, MaxEntries: maxEntries})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	s := newTestSQLiteStore(t, path, 10)
	ctx := context.Background()

	if err := s.Put(ctx, "greeting", map[string]any{"text": "hello"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok, err := s.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get should find the stored entry")
	}
	if entry.Value["text"] != "hello" {
		t.Errorf("Value = %v, want text hello", entry.Value)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt should round-trip")
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("Get should miss for unknown keys")
	}
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteStoreConfig{}); err == nil {
		t.Error("NewSQLiteStore should reject an empty path")
	}
}

func TestSQLiteStore_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "memory.db")
	s := newTestSQLiteStore(t, path, 10)

	if err := s.Put(context.Background(), "k", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestSQLiteStore_EvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	s := newTestSQLiteStore(t, path, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := s.Put(ctx, key, map[string]any{"i": i}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
	if _, ok, _ := s.Get(ctx, "k0"); ok {
		t.Error("k0 should have been evicted")
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("k1 should have been evicted")
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"k2", "k3", "k4"}
	if len(entries) != len(want) {
		t.Fatalf("List returned %d entries, want %d", len(entries), len(want))
	}
	for i, key := range want {
		if entries[i].Key != key {
			t.Errorf("List[%d].Key = %q, want %q", i, entries[i].Key, key)
		}
	}
}

func TestSQLiteStore_UpdateKeepsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	s := newTestSQLiteStore(t, path, 10)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, key, map[string]any{"v": 0}); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	if err := s.Put(ctx, "a", map[string]any{"v": 1}); err != nil {
		t.Fatalf("update a: %v", err)
	}

	n, _ := s.Len(ctx)
	if n != 3 {
		t.Errorf("Len = %d, want 3 after update", n)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if entries[0].Key != "a" {
		t.Errorf("List[0].Key = %q, want %q (update keeps insertion position)", entries[0].Key, "a")
	}
	if entries[0].Value["v"] != 1.0 {
		t.Errorf("Value = %v, want the updated record", entries[0].Value)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(SQLiteStoreConfig{Path: path, MaxEntries: 10})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := first.Put(ctx, "persist", map[string]any{"kept": true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newTestSQLiteStore(t, path, 10)
	entry, ok, err := second.Get(ctx, "persist")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !ok {
		t.Fatal("record should survive a restart")
	}
	if entry.Value["kept"] != true {
		t.Errorf("Value = %v, want kept=true", entry.Value)
	}
}
