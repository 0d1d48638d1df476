package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates everything cmd/server needs so main stays lean.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    RedisConfig
	Kafka    Kafka
	Worker   Worker
	Webhook  Webhook
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres holds the relational store configuration. An empty DSN selects the
// in-memory stores (development and unit tests).
type Postgres struct {
	DSN string
}

// RedisConfig holds the replay-dedupe cache configuration. An empty URL
// disables Redis and the bridge falls back to its in-memory dedupe.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds the audit stream configuration. Empty seeds disable streaming;
// audit entries are then only persisted locally.
type Kafka struct {
	Seeds []string
	Topic string
}

// Worker tunes the notification dispatch loop.
type Worker struct {
	PollInterval time.Duration
	BackoffBase  time.Duration
	MaxAttempts  int
}

// Webhook configures the gateway bridge. TokenHash is a bcrypt hash of the
// shared token the payment gateway sends; empty disables the check.
// MaxConcurrency bounds how many webhooks reconcile in parallel.
type Webhook struct {
	TokenHash      string
	MaxConcurrency int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("SIGCERH_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Seeds: splitNonEmpty(os.Getenv("KAFKA_SEEDS")),
			Topic: envOr("KAFKA_AUDIT_TOPIC", "sigcerh.auditoria"),
		},
		Worker: Worker{
			PollInterval: envDurationOr("NOTIFICACION_POLL_INTERVAL", 30*time.Second),
			BackoffBase:  envDurationOr("NOTIFICACION_BACKOFF_BASE", 10*time.Second),
			MaxAttempts:  envIntOr("NOTIFICACION_MAX_ATTEMPTS", 5),
		},
		Webhook: Webhook{
			TokenHash:      os.Getenv("WEBHOOK_TOKEN_HASH"),
			MaxConcurrency: envIntOr("WEBHOOK_MAX_CONCURRENCY", 4),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
