// Package session tracks issued bearer tokens so they can be enumerated and
// revoked before their natural expiry. The store is the sole owner of
// session records; no other component mutates them.
package session

import (
	"context"
	"time"

	id "tenderdesk/pkg/domain"
)

// Session is the server-side record authorizing one issued token.
type Session struct {
	Token     string    `json:"token"`
	UserID    id.UserID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is the session tracking surface. A revoked or expired token must be
// indistinguishable from a never-issued one: IsActive returns false without
// error in all three cases.
type Store interface {
	// Record inserts a session. Each login produces a distinct token, so
	// recording an already-present token is a conflict.
	Record(ctx context.Context, session Session) error

	// IsActive reports whether a live session exists for the token.
	// Implementations drop expired entries lazily on read.
	IsActive(ctx context.Context, token string) (bool, error)

	// Revoke removes the session. Revoking an unknown or already-revoked
	// token is a no-op, not an error.
	Revoke(ctx context.Context, token string) error

	// RevokeAll removes every session, optionally preserving exceptToken
	// ("log out everywhere but here"). Returns the number revoked.
	RevokeAll(ctx context.Context, exceptToken string) (int, error)

	// List returns all live sessions, for administrative inspection.
	List(ctx context.Context) ([]Session, error)
}
