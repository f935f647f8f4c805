package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Limiter decides admission for keyed requests. A disabled limiter, or a
// non-positive limit, admits everything.
type Limiter struct {
	store    BucketStore
	logger   *slog.Logger
	disabled bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithDisabled turns the limiter into a passthrough. Load tests and demo
// environments use this.
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) {
		l.disabled = disabled
	}
}

// NewLimiter creates a Limiter over the given bucket store.
func NewLimiter(store BucketStore, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{store: store, logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	if l.disabled {
		logger.Info("rate limiting disabled")
	}
	return l
}

// Check records one request against the key and reports the decision.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.disabled || limit <= 0 {
		return &Result{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	return l.store.Allow(ctx, key, limit, window)
}

// Reset clears the counter for a key. Administrative use.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
