package store

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string // memory, redis, nats, dynamodb, postgres, sqlite
	RedisURL    string
	NATSURL     string
	NATSBucket  string
	DynamoTable string
	AWSRegion   string
	DatabaseURL string
	SQLitePath  string

	// MaxTTL bounds entry lifetime for backends that need a bucket-wide limit.
	MaxTTL time.Duration
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis backend requires REDIS_URL")
		}
		return NewRedisStore(ctx, opts.RedisURL)
	case "nats":
		if opts.NATSURL == "" {
			return nil, fmt.Errorf("nats backend requires NATS_URL")
		}
		return NewNATSStore(ctx, opts.NATSURL, opts.NATSBucket, opts.MaxTTL)
	case "dynamodb":
		if opts.DynamoTable == "" {
			return nil, fmt.Errorf("dynamodb backend requires DYNAMODB_TABLE")
		}
		return NewDynamoDBStore(ctx, opts.DynamoTable, opts.AWSRegion)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
