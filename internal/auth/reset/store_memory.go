package reset

import (
	"context"
	"sync"
	"time"

	"tenderdesk/pkg/email"
	"tenderdesk/pkg/platform/sentinel"
)

// InMemoryChallengeStore keeps reset challenges in a mutex-guarded map keyed
// by normalized email. Expiry is evaluated lazily at read time.
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

// NewInMemoryChallengeStore creates an empty in-memory challenge store.
func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{challenges: make(map[string]Challenge)}
}

func (s *InMemoryChallengeStore) Put(_ context.Context, challenge Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Replacing unconditionally enforces "at most one live challenge per
	// email": a new request invalidates the prior code.
	s.challenges[email.Normalize(challenge.Email)] = challenge
	return nil
}

func (s *InMemoryChallengeStore) Get(_ context.Context, addr string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[email.Normalize(addr)]
	if !ok {
		return Challenge{}, sentinel.ErrNotFound
	}
	return challenge, nil
}

func (s *InMemoryChallengeStore) Consume(_ context.Context, addr string, now time.Time, match func(codeHash string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := email.Normalize(addr)
	challenge, ok := s.challenges[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if challenge.Consumed {
		return sentinel.ErrAlreadyUsed
	}
	if !now.Before(challenge.ExpiresAt) {
		delete(s.challenges, key)
		return sentinel.ErrExpired
	}
	if !match(challenge.CodeHash) {
		return sentinel.ErrNotFound
	}

	challenge.Consumed = true
	s.challenges[key] = challenge
	return nil
}
