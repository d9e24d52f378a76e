package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or already expired.
var ErrNotFound = errors.New("store: key not found")

// KV is the backing store contract used by the mailbox: a map from string
// key to bytes with per-entry expiry and prefix enumeration. Implementations
// may be eventually consistent; List may return keys whose entries expire
// before a subsequent Get.
type KV interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Connection management
	Close() error
	Ping(ctx context.Context) error

	// Put stores value under key. The entry disappears once ttl elapses.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all live keys starting with prefix, without payloads.
	List(ctx context.Context, prefix string) ([]string, error)
}
