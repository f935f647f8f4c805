package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher is the emission surface domain services depend on.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// StorePublisher writes events to a Store, synchronously by default or via
// a buffered background goroutine when async mode is enabled. Audit writes
// must never block or fail a user-facing request, so async emission drops
// on overflow and logs instead of propagating errors.
type StorePublisher struct {
	store  Store
	logger *slog.Logger

	buffer chan Event
	done   chan struct{}
	once   sync.Once
}

// PublisherOption configures a StorePublisher.
type PublisherOption func(*StorePublisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *StorePublisher) {
		p.buffer = make(chan Event, size)
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, logger *slog.Logger, opts ...PublisherOption) *StorePublisher {
	p := &StorePublisher{
		store:  store,
		logger: logger,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		go p.drain()
	}
	return p
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		return nil
	}
}

func (p *StorePublisher) drain() {
	defer close(p.done)
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append audit event", "error", err, "action", event.Action)
		}
	}
}

// Close stops the async drain goroutine after flushing buffered events.
// No-op in synchronous mode.
func (p *StorePublisher) Close() {
	if p.buffer == nil {
		return
	}
	p.once.Do(func() {
		close(p.buffer)
		<-p.done
	})
}
