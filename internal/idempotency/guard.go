// Package idempotency deduplicates mutating requests. A client that retries
// a mutation with the same Idempotency-Key receives the stored response of
// the first execution instead of executing the mutation again.
package idempotency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "tenderdesk/pkg/domain-errors"
)

// Response is the captured outcome of an executed operation, replayed
// verbatim on duplicate requests.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Operation produces the response to be recorded against the key.
type Operation func() (Response, error)

type recordState int

const (
	stateInFlight recordState = iota
	stateDone
)

type record struct {
	fingerprint string
	state       recordState
	response    Response
	createdAt   time.Time
	done        chan struct{}
}

// Guard enforces exactly-once execution per key. Keys are scoped by
// fingerprint: reusing a key for a different request is a conflict, not a
// replay.
type Guard struct {
	mu        sync.Mutex
	records   map[string]*record
	retention time.Duration
	wait      time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the guard's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// NewGuard creates a Guard. retention bounds how long completed records are
// replayable; wait bounds how long a duplicate blocks on an in-flight
// original before giving up.
func NewGuard(retention, wait time.Duration, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		records:   make(map[string]*record),
		retention: retention,
		wait:      wait,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute runs op exactly once per key. Duplicate calls with the matching
// fingerprint replay the stored response; a duplicate arriving while the
// original is still executing waits, bounded, for it to finish. A failed op
// leaves no record, so the client may retry with the same key.
func (g *Guard) Execute(ctx context.Context, key, fingerprint string, op Operation) (Response, bool, error) {
	for {
		g.mu.Lock()
		rec, ok := g.records[key]
		if ok && rec.state == stateDone && g.now().Sub(rec.createdAt) > g.retention {
			delete(g.records, key)
			rec, ok = nil, false
		}

		if !ok {
			rec = &record{
				fingerprint: fingerprint,
				state:       stateInFlight,
				createdAt:   g.now(),
				done:        make(chan struct{}),
			}
			g.records[key] = rec
			g.mu.Unlock()
			return g.run(key, rec, op)
		}

		if rec.fingerprint != fingerprint {
			g.mu.Unlock()
			return Response{}, false, dErrors.New(dErrors.CodeConflict, "idempotency key was used with a different request")
		}

		if rec.state == stateDone {
			response := rec.response
			g.mu.Unlock()
			return response, true, nil
		}

		// Original still in flight: wait for it, bounded.
		done := rec.done
		g.mu.Unlock()

		timer := time.NewTimer(g.wait)
		select {
		case <-done:
			timer.Stop()
			// Loop to re-read the outcome; the record may also be gone if
			// the original failed, in which case this caller executes.
		case <-timer.C:
			return Response{}, false, dErrors.New(dErrors.CodeRetryLater, "original request still in progress, retry later")
		case <-ctx.Done():
			timer.Stop()
			return Response{}, false, ctx.Err()
		}
	}
}

func (g *Guard) run(key string, rec *record, op Operation) (Response, bool, error) {
	response, err := op()

	g.mu.Lock()
	if err != nil {
		// No record for failed operations: the client may retry the key.
		delete(g.records, key)
	} else {
		rec.response = response
		rec.state = stateDone
	}
	close(rec.done)
	g.mu.Unlock()

	if err != nil {
		return Response{}, false, err
	}
	return response, false, nil
}

// StartJanitor launches a background goroutine that evicts records past
// retention. Replay correctness does not depend on it; Execute already
// ignores stale records.
func (g *Guard) StartJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := g.evictStale(); n > 0 {
					logger.Debug("evicted stale idempotency records", "count", n)
				}
			}
		}
	}()
}

func (g *Guard) evictStale() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	evicted := 0
	for key, rec := range g.records {
		if rec.state == stateDone && now.Sub(rec.createdAt) > g.retention {
			delete(g.records, key)
			evicted++
		}
	}
	return evicted
}
