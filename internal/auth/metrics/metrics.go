// Package metrics exposes Prometheus instrumentation for the auth engine.
// Metrics are package-level so every service instance shares one series set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenderdesk_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	sessionsRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tenderdesk_sessions_revoked_total",
		Help: "Sessions revoked, individually or via logout-all",
	})

	logoutAllDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tenderdesk_logout_all_duration_ms",
		Help:    "Latency of logout-all operations in milliseconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
	})

	resetCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenderdesk_password_resets_total",
		Help: "Password reset completions by outcome",
	}, []string{"outcome"})
)

// RecordLogin counts a login attempt by outcome ("success" or "failure").
func RecordLogin(outcome string) {
	loginsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionsRevoked counts n revoked sessions.
func RecordSessionsRevoked(n int) {
	sessionsRevokedTotal.Add(float64(n))
}

// ObserveLogoutAll records the duration of a logout-all sweep.
func ObserveLogoutAll(durationMs float64) {
	logoutAllDurationMs.Observe(durationMs)
}

// RecordResetCompletion counts a reset completion by outcome.
func RecordResetCompletion(outcome string) {
	resetCompletionsTotal.WithLabelValues(outcome).Inc()
}
