package memory

import (
	"context"
	"fmt"
	"testing"
)

func TestMemStore_PutGet(t *testing.T) {
	s := NewMemStore(10)
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
		t.Error("CreatedAt should be set")
	}

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Error("Get should miss for unknown keys")
	}
}

func TestMemStore_RejectsBlankKey(t *testing.T) {
	s := NewMemStore(10)
	if err := s.Put(context.Background(), "  ", nil); err == nil {
		t.Error("Put should reject a blank key")
	}
}

func TestMemStore_ValueIsolation(t *testing.T) {
	s := NewMemStore(10)
	ctx := context.Background()
	value := map[string]any{"n": 1}
	if err := s.Put(ctx, "k", value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value["n"] = 99

	entry, _, _ := s.Get(ctx, "k")
	if entry.Value["n"] != 1 {
		t.Errorf("stored value mutated through the caller's map: %v", entry.Value)
	}
}

func TestMemStore_EvictsOldest(t *testing.T) {
	s := NewMemStore(3)
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
	if _, ok, _ := s.Get(ctx, "k4"); !ok {
		t.Error("k4 should survive")
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"k2", "k3", "k4"}
	for i, key := range want {
		if entries[i].Key != key {
			t.Errorf("List[%d].Key = %q, want %q", i, entries[i].Key, key)
		}
	}
}

func TestMemStore_UpdateDoesNotDuplicate(t *testing.T) {
	s := NewMemStore(10)
	ctx := context.Background()
	if err := s.Put(ctx, "k", map[string]any{"v": 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "k", map[string]any{"v": 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	n, _ := s.Len(ctx)
	if n != 1 {
		t.Errorf("Len = %d, want 1 after update", n)
	}
	entry, _, _ := s.Get(ctx, "k")
	if entry.Value["v"] != 2 {
		t.Errorf("Value = %v, want the updated record", entry.Value)
	}
}

func TestMemStore_CanceledContext(t *testing.T) {
	s := NewMemStore(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, "k", nil); err == nil {
		t.Error("Put should respect context cancellation")
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get should respect context cancellation")
	}
}
