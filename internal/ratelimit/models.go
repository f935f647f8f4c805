// Package ratelimit enforces sliding-window request limits on sensitive
// endpoints. Limits are keyed by caller identity (client IP); the window
// slides, so bursts straddling a window boundary cannot double the budget.
package ratelimit

import "time"

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when denied
}
