package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore keeps mailbox entries in a JetStream key-value bucket.
//
// NATS keys cannot contain ':', so the store maps ':' to '.' on the way in and
// back on the way out. Callers must not use '.' in their own keys.
type NATSStore struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

// NewNATSStore connects to NATS and creates (or updates) the bucket.
// maxTTL bounds every entry in the bucket; per-entry TTLs are set on write.
func NewNATSStore(ctx context.Context, natsURL, bucket string, maxTTL time.Duration) (*NATSStore, error) {
	nc, err := nats.Connect(natsURL, nats.Name("roomrelay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:         bucket,
		Description:    "Signaling room mailboxes",
		History:        1,
		TTL:            maxTTL,
		LimitMarkerTTL: time.Second,
		Storage:        jetstream.MemoryStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create key-value bucket '%s': %w", bucket, err)
	}

	return &NATSStore{nc: nc, kv: kv}, nil
}

// Name returns the backend name.
func (s *NATSStore) Name() string { return "nats" }

// Conn exposes the connection so the notifier can share it.
func (s *NATSStore) Conn() *nats.Conn {
	return s.nc
}

// Close drains and closes the NATS connection.
func (s *NATSStore) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}

// Ping checks the bucket is reachable.
func (s *NATSStore) Ping(ctx context.Context) error {
	if !s.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	_, err := s.kv.Status(ctx)
	return err
}

// Put creates the key with a per-key TTL. Mailbox keys are unique, so
// Create (which fails on an existing key) is the right primitive.
func (s *NATSStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.kv.Create(ctx, natsKey(key), value, jetstream.KeyTTL(ttl))
	return err
}

// Get returns the value for key.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

// List returns keys starting with prefix. A prefix ending in ':' becomes a
// subject wildcard filter; anything else is filtered client side.
func (s *NATSStore) List(ctx context.Context, prefix string) ([]string, error) {
	filter := ">"
	if enc := natsKey(prefix); strings.HasSuffix(enc, ".") {
		filter = enc + ">"
	}

	lister, err := s.kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer lister.Stop()

	keys := make([]string, 0)
	for k := range lister.Keys() {
		k = fromNATSKey(k)
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func natsKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func fromNATSKey(key string) string {
	return strings.ReplaceAll(key, ".", ":")
}
