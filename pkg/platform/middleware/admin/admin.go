// Package admin gates administrative routes on the authenticated caller's
// role. It must run after the bearer-token middleware.
package admin

import (
	"log/slog"
	"net/http"

	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// RoleAdmin is the directory role granting access to /admin routes.
const RoleAdmin = "admin"

// RequireAdmin rejects authenticated callers whose role is not admin.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx),
					"role", requestcontext.Role(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
