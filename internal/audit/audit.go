// Package audit captures security-relevant actions as structured events.
// Events are emitted from domain logic and kept transport-agnostic so stores
// and sinks can fan out.
package audit

import (
	"time"

	id "tenderdesk/pkg/domain"
)

// Event records one security-relevant action.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    id.UserID `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an admin revoking another user's session.
	ActorID string `json:"actor_id,omitempty"`
}

// Action is a well-known audit action name.
type Action string

const (
	EventLoginSucceeded   Action = "login_succeeded"
	EventLoginFailed      Action = "login_failed"
	EventSessionRevoked   Action = "session_revoked"
	EventSessionsCleared  Action = "sessions_cleared"
	EventResetRequested   Action = "password_reset_requested"
	EventResetCompleted   Action = "password_reset_completed"
	EventBootRotated      Action = "boot_generation_rotated"
	EventDossierMutated   Action = "dossier_mutated"
	EventRateLimitTripped Action = "rate_limit_tripped"
)
