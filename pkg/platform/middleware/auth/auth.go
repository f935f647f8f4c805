// Package auth provides the bearer-token middleware. It depends only on a
// narrow Verifier interface so the transport layer never imports the auth
// service directly.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// Principal is the authenticated caller as established by token
// verification.
type Principal struct {
	UserID id.UserID
	Role   string
}

// Verifier validates a bearer token and resolves the principal behind it.
// Any failure (malformed, expired, revoked, unknown) must surface as a
// single unauthorized error with no further distinction.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// principal into the request context.
func RequireAuth(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := verifier.VerifyToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, principal.UserID)
			ctx = requestcontext.WithRole(ctx, principal.Role)
			ctx = requestcontext.WithBearerToken(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, prefix)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
