// Package reset implements the password-reset flow: short-lived numeric
// codes bound to an email, verified and consumed exactly once.
package reset

import (
	"context"
	"time"
)

// Challenge is one outstanding reset code for an email. At most one live
// (non-consumed, non-expired) challenge exists per email; issuing a new one
// replaces the prior.
type Challenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

// Live reports whether the challenge can still be verified at the given time.
func (c Challenge) Live(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}

// ChallengeStore persists reset challenges. Consume must be atomic: the
// match check and the consumed flag flip happen under one lock so a code
// can never complete two resets.
type ChallengeStore interface {
	// Put stores a challenge, replacing any prior challenge for the email.
	Put(ctx context.Context, challenge Challenge) error

	// Get returns the challenge for the email, or sentinel.ErrNotFound.
	Get(ctx context.Context, email string) (Challenge, error)

	// Consume atomically validates and consumes the challenge. match is
	// called with the stored code hash while the entry is locked. Errors:
	// sentinel.ErrNotFound (no challenge or hash mismatch),
	// sentinel.ErrExpired, sentinel.ErrAlreadyUsed.
	Consume(ctx context.Context, email string, now time.Time, match func(codeHash string) bool) error
}
