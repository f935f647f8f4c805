package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tenderdesk/internal/audit"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// Middleware applies the limiter to HTTP requests keyed by client IP.
type Middleware struct {
	limiter *Limiter
	logger  *slog.Logger
	auditor audit.Publisher
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithAuditor emits an audit event when a request is denied.
func WithAuditor(p audit.Publisher) MiddlewareOption {
	return func(m *Middleware) {
		m.auditor = p
	}
}

// NewMiddleware creates the rate limit middleware.
func NewMiddleware(limiter *Limiter, logger *slog.Logger, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit returns a middleware enforcing limit requests per window per client
// IP for the named endpoint class. Store failures admit the request: the
// limiter protects the service, it must not take it down.
func (m *Middleware) Limit(class string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.Check(ctx, class+":"+ip, limit, window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"class", class,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				rateLimitedTotal.WithLabelValues(class).Inc()
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				if m.auditor != nil {
					_ = m.auditor.Emit(ctx, audit.Event{
						Timestamp: requestcontext.Now(ctx),
						Action:    string(audit.EventRateLimitTripped),
						Reason:    class,
						RequestID: requestcontext.RequestID(ctx),
					})
				}
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	if result == nil || result.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}
