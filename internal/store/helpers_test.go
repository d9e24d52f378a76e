package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testKVContract exercises the behaviour every backend must share.
func testKVContract(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	entries := map[string]string{
		"r1:0001700000000000:AAAA":  `{"n":1}`,
		"r1:0001700000000001:BBBB":  `{"n":2}`,
		"r10:0001700000000000:CCCC": `{"n":3}`,
		"r_x:0001700000000000:DDDD": `{"n":4}`,
	}
	for k, v := range entries {
		if err := kv.Put(ctx, k, []byte(v), time.Minute); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}

	got, err := kv.Get(ctx, "r1:0001700000000001:BBBB")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"n":2}` {
		t.Fatalf("Get = %s, want {\"n\":2}", got)
	}

	if _, err := kv.Get(ctx, "r1:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing: expected ErrNotFound, got %v", err)
	}

	keys, err := kv.List(ctx, "r1:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List r1: = %v, want 2 keys", keys)
	}
	for _, k := range keys {
		if k != "r1:0001700000000000:AAAA" && k != "r1:0001700000000001:BBBB" {
			t.Fatalf("List r1: returned foreign key %q", k)
		}
	}

	// "_" must match literally, not as a wildcard
	keys, err = kv.List(ctx, "rx:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("List rx: = %v, want none", keys)
	}

	keys, err = kv.List(ctx, "empty:")
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("List empty: = %v, want none", keys)
	}
}
