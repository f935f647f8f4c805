// Package admin exposes the administrative surface: session inspection and
// revocation, the application reset, and the audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"tenderdesk/internal/audit"
	"tenderdesk/internal/auth/session"
	"tenderdesk/internal/boot"
	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// SessionAdmin is the session surface the admin handler needs.
type SessionAdmin interface {
	ClearAllSessions(ctx context.Context) (int, error)
	Sessions() session.Store
}

// Handler handles the /admin endpoints.
type Handler struct {
	auth     SessionAdmin
	gen      *boot.Generation
	auditLog audit.Store
	auditor  audit.Publisher
	logger   *slog.Logger
}

// New creates the admin Handler.
func New(auth SessionAdmin, gen *boot.Generation, auditLog audit.Store, auditor audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, gen: gen, auditLog: auditLog, auditor: auditor, logger: logger}
}

// Register mounts the admin routes. requireAdmin must already sit behind the
// bearer-token middleware. The destructive reset-app additionally passes
// through the sensitive-mutation rate limit.
func (h *Handler) Register(r chi.Router, requireAuth, requireAdmin, sensitive func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(requireAdmin)
		r.Get("/admin/sessions", h.handleListSessions)
		r.Post("/admin/revoke-session", h.handleRevokeSession)
		r.With(sensitive).Post("/admin/reset-app", h.handleResetApp)
		r.Get("/admin/audit", h.handleAudit)
	})
}

// sessionView is the admin-facing session record. The token is masked: an
// admin can identify and revoke a session without being able to use it.
type sessionView struct {
	TokenPrefix string    `json:"token_prefix"`
	UserID      id.UserID `json:"user_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	IP          string    `json:"ip,omitempty"`
	Device      string    `json:"device,omitempty"`
}

const tokenPrefixLen = 12

func maskToken(token string) string {
	if len(token) <= tokenPrefixLen {
		return token
	}
	return token[:tokenPrefixLen] + "..."
}

// describeDevice renders a User-Agent string as "Browser x.y on OS".
func describeDevice(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	if name == "" {
		return ua
	}
	desc := name
	if version != "" {
		desc += " " + version
	}
	if os := parsed.OS(); os != "" {
		desc += " on " + os
	}
	return desc
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.auth.Sessions().List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sessions",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions"))
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			TokenPrefix: maskToken(s.Token),
			UserID:      s.UserID,
			IssuedAt:    s.IssuedAt,
			ExpiresAt:   s.ExpiresAt,
			IP:          s.IP,
			Device:      describeDevice(s.UserAgent),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

type revokeSessionRequest struct {
	Token string `json:"token"`
}

func (req *revokeSessionRequest) Validate() error {
	if req.Token == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	return nil
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[revokeSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.auth.Sessions().Revoke(ctx, req.Token); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke session",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session"))
		return
	}

	h.emitAudit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(audit.EventSessionRevoked),
		Reason:    "revoked by admin",
		ActorID:   requestcontext.UserID(ctx).String(),
		RequestID: requestID,
	})
	w.WriteHeader(http.StatusNoContent)
}

type resetAppRequest struct {
	RotateBootID bool `json:"rotate_boot_id"`
}

type resetAppResponse struct {
	RevokedCount int    `json:"revoked_count"`
	BootID       string `json:"boot_id"`
}

// handleResetApp revokes every session and optionally rotates the boot
// generation, forcing all clients to reinitialize.
func (h *Handler) handleResetApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := resetAppRequest{}
	if r.ContentLength > 0 {
		decoded, ok := httputil.DecodeAndPrepare[resetAppRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		req = *decoded
	}

	revoked, err := h.auth.ClearAllSessions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to clear sessions",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	bootID := h.gen.Current()
	if req.RotateBootID {
		bootID = h.gen.Rotate()
		h.emitAudit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			Action:    string(audit.EventBootRotated),
			ActorID:   requestcontext.UserID(ctx).String(),
			RequestID: requestID,
		})
	}

	h.logger.InfoContext(ctx, "application reset",
		"revoked_sessions", revoked,
		"boot_rotated", req.RotateBootID,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, resetAppResponse{RevokedCount: revoked, BootID: bootID})
}

const defaultAuditPageSize = 100

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultAuditPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events, err := h.auditLog.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) emitAudit(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}
