// Package config builds runtime configuration from the environment so main
// stays lean. Validation failures are fatal at startup: the server must
// refuse to run with a weak signing secret rather than issue weak tokens.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// MinSigningSecretBytes is the minimum accepted length of the HMAC signing
// secret. Anything shorter makes issued tokens brute-forceable.
const MinSigningSecretBytes = 32

// ErrWeakSigningSecret marks the fatal configuration error for a missing or
// too-short signing secret.
var ErrWeakSigningSecret = errors.New("signing secret missing or too short")

// Server captures the full server configuration.
type Server struct {
	Addr          string
	SigningSecret string
	TokenTTL      time.Duration

	// Sensitive-mutation rate limits. A limit <= 0 or Disabled=true turns
	// rate limiting into a pure pass-through.
	RateLimitDisabled bool
	SensitiveLimit    int
	SensitiveWindow   time.Duration

	IdempotencyRetention time.Duration
	IdempotencyWait      time.Duration

	ResetCodeTTL time.Duration

	// SessionSweepInterval enables the optional background expiry sweep
	// when positive. Lazy expiry keeps correctness either way.
	SessionSweepInterval time.Duration

	Redis RedisConfig
}

// RedisConfig holds connection settings for the optional Redis-backed
// stores. An empty URL means the in-memory stores are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from TENDERDESK_* environment variables.
func FromEnv() Server {
	return Server{
		Addr:                 envString("TENDERDESK_ADDR", ":8080"),
		SigningSecret:        os.Getenv("TENDERDESK_SIGNING_SECRET"),
		TokenTTL:             envDuration("TENDERDESK_TOKEN_TTL", 24*time.Hour),
		RateLimitDisabled:    os.Getenv("TENDERDESK_RATE_LIMIT_DISABLED") == "true",
		SensitiveLimit:       envInt("TENDERDESK_SENSITIVE_LIMIT", 10),
		SensitiveWindow:      envDuration("TENDERDESK_SENSITIVE_WINDOW", time.Minute),
		IdempotencyRetention: envDuration("TENDERDESK_IDEMPOTENCY_RETENTION", 24*time.Hour),
		IdempotencyWait:      envDuration("TENDERDESK_IDEMPOTENCY_WAIT", 5*time.Second),
		ResetCodeTTL:         envDuration("TENDERDESK_RESET_CODE_TTL", 15*time.Minute),
		SessionSweepInterval: envDuration("TENDERDESK_SESSION_SWEEP_INTERVAL", 0),
		Redis: RedisConfig{
			URL:          os.Getenv("TENDERDESK_REDIS_URL"),
			PoolSize:     envInt("TENDERDESK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TENDERDESK_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TENDERDESK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TENDERDESK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TENDERDESK_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

// Validate rejects configurations the server must not start with.
func (s Server) Validate() error {
	if len(s.SigningSecret) < MinSigningSecretBytes {
		return fmt.Errorf("TENDERDESK_SIGNING_SECRET must be at least %d bytes: %w",
			MinSigningSecretBytes, ErrWeakSigningSecret)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("TENDERDESK_TOKEN_TTL must be positive, got %s", s.TokenTTL)
	}
	if s.ResetCodeTTL <= 0 {
		return fmt.Errorf("TENDERDESK_RESET_CODE_TTL must be positive, got %s", s.ResetCodeTTL)
	}
	if s.IdempotencyWait <= 0 {
		return fmt.Errorf("TENDERDESK_IDEMPOTENCY_WAIT must be positive, got %s", s.IdempotencyWait)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
