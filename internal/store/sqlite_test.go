package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	testKVContract(t, newTestSQLiteStore(t))
}

func TestSQLiteStoreExpiryAndReap(t *testing.T) {
	s := newTestSQLiteStore(t)
	clock := newFakeClock()
	s.now = clock.Now
	ctx := context.Background()

	if err := s.Put(ctx, "room:1", []byte("a"), time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "room:2", []byte("b"), time.Hour); err != nil {
		t.Fatal(err)
	}

	clock.Advance(2 * time.Second)

	if _, err := s.Get(ctx, "room:1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	keys, err := s.List(ctx, "room:")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Fatalf("List = %v, want 1 live key", keys)
	}

	n, err := s.Reap(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("Reap removed %d rows, want 1", n)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"room:", "room:"},
		{"a_b:", `a\_b:`},
		{"100%", `100\%`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Fatalf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
