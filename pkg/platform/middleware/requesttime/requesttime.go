// Package requesttime stamps each request with a request ID and a single
// clock reading. Every component that asks requestcontext.Now(ctx) during
// the request observes the same instant, which keeps expiry comparisons
// consistent across token, session, and reset checks.
package requesttime

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"tenderdesk/pkg/requestcontext"
)

// Middleware injects a request ID and the request arrival time into the
// context. An inbound X-Request-ID is honored so IDs correlate across
// services; otherwise a fresh UUID is generated.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
