package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Backing store
	StoreBackend  string // memory, redis, nats, dynamodb, postgres, sqlite
	RedisURL      string
	NATSURL       string
	NATSBucket    string
	DynamoDBTable string
	AWSRegion     string
	DatabaseURL   string
	SQLitePath    string

	// Write notifications
	NotifyBackend string // none, nats, mqtt
	MQTTBrokerURL string

	// Media broker pass-through
	BrokerBaseURL  string
	BrokerAppID    string
	BrokerAppToken string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		StoreBackend:     getEnv("STORE_BACKEND", "memory"),
		RedisURL:         os.Getenv("REDIS_URL"),
		NATSURL:          os.Getenv("NATS_URL"),
		NATSBucket:       getEnv("NATS_BUCKET", "roomrelay"),
		DynamoDBTable:    getEnv("DYNAMODB_TABLE", "RoomRelayMailbox"),
		AWSRegion:        os.Getenv("AWS_REGION"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		NotifyBackend:    getEnv("NOTIFY_BACKEND", "none"),
		MQTTBrokerURL:    os.Getenv("MQTT_BROKER_URL"),
		BrokerBaseURL:    os.Getenv("BROKER_BASE_URL"),
		BrokerAppID:      os.Getenv("BROKER_APP_ID"),
		BrokerAppToken:   os.Getenv("BROKER_APP_TOKEN"),
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations Load cannot default its way out of.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "redis", "nats", "dynamodb", "postgres", "sqlite":
	default:
		return errors.New("STORE_BACKEND must be one of memory, redis, nats, dynamodb, postgres, sqlite")
	}

	switch c.NotifyBackend {
	case "none":
	case "nats":
		if c.NATSURL == "" {
			return errors.New("NOTIFY_BACKEND=nats requires NATS_URL")
		}
	case "mqtt":
		if c.MQTTBrokerURL == "" {
			return errors.New("NOTIFY_BACKEND=mqtt requires MQTT_BROKER_URL")
		}
	default:
		return errors.New("NOTIFY_BACKEND must be one of none, nats, mqtt")
	}

	// An in-process store loses every mailbox on restart and is not shared
	// between instances.
	if c.Env == "production" && c.StoreBackend == "memory" {
		return errors.New("STORE_BACKEND=memory is not allowed in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// BrokerEnabled reports whether the media broker pass-through is configured.
func (c *Config) BrokerEnabled() bool {
	return c.BrokerAppID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
