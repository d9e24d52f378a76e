package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/models"
	"github.com/eldtechnologies/roomrelay/internal/store"
)

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

// newTestMailbox returns a mailbox over a memory store driven by clock.
func newTestMailbox(t *testing.T, clock *fakeClock) (*Mailbox, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStoreWithClock(clock.Now)
	mb := New(Config{
		Store:  kv,
		Logger: zerolog.Nop(),
		Now:    clock.Now,
	})
	return mb, kv
}

func mustWrite(t *testing.T, mb *Mailbox, msg models.Message) *models.Message {
	t.Helper()
	out, err := mb.Write(context.Background(), msg)
	if err != nil {
		t.Fatalf("Write %+v: %v", msg, err)
	}
	return out
}

func mustRead(t *testing.T, mb *Mailbox, room string) []models.Message {
	t.Helper()
	msgs, err := mb.Read(context.Background(), room)
	if err != nil {
		t.Fatalf("Read %s: %v", room, err)
	}
	return msgs
}

var errBackend = errors.New("backend down")

// failingKV wraps a KV and fails selected operations.
type failingKV struct {
	store.KV
	failPut  bool
	failList bool
	failGet  bool
}

func (f *failingKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failPut {
		return errBackend
	}
	return f.KV.Put(ctx, key, value, ttl)
}

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errBackend
	}
	return f.KV.Get(ctx, key)
}

func (f *failingKV) List(ctx context.Context, prefix string) ([]string, error) {
	if f.failList {
		return nil, errBackend
	}
	return f.KV.List(ctx, prefix)
}

// recordingNotifier captures notified messages and can fail on demand.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []models.Message
	err  error
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(ctx context.Context, msg *models.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, *msg)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }
