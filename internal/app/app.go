// Package app assembles the relay from configuration: backing store,
// notifier, mailbox, broker client and router.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/api"
	"github.com/eldtechnologies/roomrelay/internal/api/middleware"
	"github.com/eldtechnologies/roomrelay/internal/config"
	"github.com/eldtechnologies/roomrelay/internal/handlers"
	"github.com/eldtechnologies/roomrelay/internal/mailbox"
	"github.com/eldtechnologies/roomrelay/internal/notify"
	"github.com/eldtechnologies/roomrelay/internal/relay"
	"github.com/eldtechnologies/roomrelay/internal/store"
)

const reapInterval = time.Minute

// App is a fully wired relay.
type App struct {
	Handler http.Handler

	kv       store.KV
	notifier notify.Notifier
	cancel   context.CancelFunc
}

// NewLogger returns a console logger in development and JSON otherwise.
func NewLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// New connects to the configured backends and builds the router. Background
// work (expired row reaping) runs until Close.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		RedisURL:    cfg.RedisURL,
		NATSURL:     cfg.NATSURL,
		NATSBucket:  cfg.NATSBucket,
		DynamoTable: cfg.DynamoDBTable,
		AWSRegion:   cfg.AWSRegion,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		MaxTTL:      mailbox.MessageTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	logger.Info().Str("backend", kv.Name()).Msg("backing store connected")

	bgCtx, cancel := context.WithCancel(context.Background())
	a := &App{kv: kv, cancel: cancel}

	if r, ok := kv.(store.Reaper); ok {
		go store.RunReaper(bgCtx, r, reapInterval, logger)
	}

	notifier, err := newNotifier(cfg, kv, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect %s notifier: %w", cfg.NotifyBackend, err)
	}
	a.notifier = notifier

	mb := mailbox.New(mailbox.Config{
		Store:    store.Instrument(kv),
		Notifier: a.notifier,
		Logger:   logger,
	})

	var broker relay.Broker
	if cfg.BrokerEnabled() {
		broker = relay.NewHTTPBroker(cfg.BrokerBaseURL, cfg.BrokerAppID, cfg.BrokerAppToken)
	}

	opts := api.Options{
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	}
	if rs, ok := kv.(*store.RedisStore); ok {
		opts.RateLimitClient = rs.Client()
	}

	a.Handler = api.NewRouter(logger, handlers.NewHandler(mb, broker, logger), opts)
	return a, nil
}

func newNotifier(cfg *config.Config, kv store.KV, logger zerolog.Logger) (notify.Notifier, error) {
	switch cfg.NotifyBackend {
	case "nats":
		if ns, ok := kv.(*store.NATSStore); ok {
			return notify.NewNATSNotifierFromConn(ns.Conn()), nil
		}
		n, err := notify.NewNATSNotifier(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "mqtt":
		n, err := notify.NewMQTTNotifier(cfg.MQTTBrokerURL, "roomrelay-"+uuid.NewString()[:8], logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return notify.Nop{}, nil
	}
}

// Close stops background work and releases backend connections.
func (a *App) Close() {
	a.cancel()
	if a.notifier != nil {
		_ = a.notifier.Close()
	}
	_ = a.kv.Close()
}
