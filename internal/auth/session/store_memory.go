package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tenderdesk/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a mutex-guarded map. Expiry is evaluated
// lazily at read time; the optional sweeper exists for memory hygiene only.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the store's clock, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Record(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.Token]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *InMemoryStore) IsActive(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return false, nil
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		return false, nil
	}
	return true, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *InMemoryStore) RevokeAll(_ context.Context, exceptToken string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for token := range s.sessions {
		if token == exceptToken {
			continue
		}
		delete(s.sessions, token)
		revoked++
	}
	return revoked, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	live := make([]Session, 0, len(s.sessions))
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			continue
		}
		live = append(live, session)
	}
	return live, nil
}

// StartSweeper launches a background goroutine that periodically drops
// expired sessions. Purely a memory-hygiene measure; IsActive is already
// correct without it. The goroutine exits when ctx is cancelled.
func (s *InMemoryStore) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
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
				if n := s.sweep(); n > 0 {
					logger.Debug("swept expired sessions", "count", n)
				}
			}
		}
	}()
}

func (s *InMemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			dropped++
		}
	}
	return dropped
}
