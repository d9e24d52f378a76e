package store

import (
	"context"
	"errors"
	"time"

	"github.com/eldtechnologies/roomrelay/internal/metrics"
)

// instrumented records latency and outcome of every backend call.
type instrumented struct {
	KV
}

// Instrument wraps kv so each operation is observed in the store metrics.
func Instrument(kv KV) KV {
	return &instrumented{KV: kv}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	metrics.StoreLatency.WithLabelValues(s.Name(), op).Observe(time.Since(start).Seconds())
	metrics.StoreOps.WithLabelValues(s.Name(), op, result).Inc()
}

func (s *instrumented) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.KV.Put(ctx, key, value, ttl)
	s.observe("put", start, err)
	return err
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := s.KV.Get(ctx, key)
	s.observe("get", start, err)
	return v, err
}

func (s *instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.KV.List(ctx, prefix)
	s.observe("list", start, err)
	return keys, err
}
