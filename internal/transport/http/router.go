// Package httptransport assembles the HTTP surface: middleware chain, route
// registration, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tenderdesk/internal/admin"
	"tenderdesk/internal/audit"
	authhandler "tenderdesk/internal/auth/handler"
	"tenderdesk/internal/auth/reset"
	"tenderdesk/internal/auth/service"
	"tenderdesk/internal/boot"
	"tenderdesk/internal/dossier"
	"tenderdesk/internal/idempotency"
	"tenderdesk/internal/ratelimit"
	"tenderdesk/pkg/platform/httputil"
	mwadmin "tenderdesk/pkg/platform/middleware/admin"
	mwauth "tenderdesk/pkg/platform/middleware/auth"
	"tenderdesk/pkg/platform/middleware/metadata"
	"tenderdesk/pkg/platform/middleware/requesttime"
)

// Deps carries the wired services the router exposes.
type Deps struct {
	Logger   *slog.Logger
	Auth     *service.Service
	Reset    *reset.Flow
	Dossiers *dossier.Service
	Boot     *boot.Generation
	AuditLog audit.Store
	Auditor  audit.Publisher
	Limiter  *ratelimit.Limiter
	Guard    *idempotency.Guard

	SensitiveLimit  int
	SensitiveWindow time.Duration

	// Health reports backing-store health; nil means no external stores.
	Health func(ctx context.Context) error
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.Middleware)

	requireAuth := mwauth.RequireAuth(deps.Auth, deps.Logger)
	requireAdmin := mwadmin.RequireAdmin(deps.Logger)
	sensitive := ratelimit.NewMiddleware(deps.Limiter, deps.Logger, ratelimit.WithAuditor(deps.Auditor)).
		Limit("sensitive", deps.SensitiveLimit, deps.SensitiveWindow)
	idempotent := idempotency.NewMiddleware(deps.Guard, deps.Logger).Handle

	boot.NewHandler(deps.Boot).Register(r)
	authhandler.New(deps.Auth, deps.Reset, deps.Logger).Register(r, requireAuth, sensitive)
	dossier.NewHandler(deps.Dossiers, deps.Logger).Register(r, requireAuth, idempotent)
	admin.New(deps.Auth, deps.Boot, deps.AuditLog, deps.Auditor, deps.Logger).Register(r, requireAuth, requireAdmin, sensitive)

	r.Get("/healthz", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(health func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
