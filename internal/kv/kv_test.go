package kv

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/timebox.db"
	s, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen — should succeed and not re-migrate
	s2, err := NewSQLite(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestGetAbsentKey(t *testing.T) {
	s := newTestStore(t)
	v, err := s.Get("missing")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil for absent key, got %q", v)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("session-2026-01-15", []byte(`{"date":"2026-01-15"}`)); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get("session-2026-01-15")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != `{"date":"2026-01-15"}` {
		t.Fatalf("unexpected value: %q", v)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)
	s.Set("k", []byte("one"))
	s.Set("k", []byte("two"))
	v, _ := s.Get("k")
	if string(v) != "two" {
		t.Fatalf("expected overwrite, got %q", v)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	s.Set("k", []byte("v"))
	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	v, _ := s.Get("k")
	if v != nil {
		t.Fatal("expected key gone after delete")
	}

	// Deleting a missing key is not an error
	if err := s.Delete("missing"); err != nil {
		t.Fatal(err)
	}
}

func TestListKeysWithPrefix(t *testing.T) {
	s := newTestStore(t)
	s.Set("session-2026-01-14", []byte("a"))
	s.Set("session-2026-01-15", []byte("b"))
	s.Set("queue-tasks", []byte("c"))

	keys, err := s.ListKeysWithPrefix("session-")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 session keys, got %d", len(keys))
	}
	if keys[0] != "session-2026-01-14" || keys[1] != "session-2026-01-15" {
		t.Fatalf("keys not sorted: %v", keys)
	}
}

func TestNotifierFiresOnWrite(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	s, err := NewSQLite(":memory:", func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Set("k", []byte("v"))
	s.Delete("k")

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("notifier fired %d times, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifierPanicDoesNotFailWrite(t *testing.T) {
	s, err := NewSQLite(":memory:", func() { panic("sync layer down") })
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("write should not fail when notifier panics: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
}
