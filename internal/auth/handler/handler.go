// Package handler exposes the authentication endpoints. Handlers decode,
// delegate, and encode; policy lives in the service and the reset flow.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenderdesk/internal/auth/service"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/email"
	"tenderdesk/pkg/platform/httputil"
	"tenderdesk/pkg/requestcontext"
)

// AuthService is the session-lifecycle surface the handler needs.
type AuthService interface {
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	GetCurrentUser(ctx context.Context) (service.Profile, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context, keepCurrent bool) (int, error)
}

// ResetFlow is the password-reset surface the handler needs.
type ResetFlow interface {
	Request(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (bool, error)
	Complete(ctx context.Context, email, code, newPassword string) error
}

// Handler handles the /auth endpoints.
type Handler struct {
	auth   AuthService
	reset  ResetFlow
	logger *slog.Logger
}

// New creates the auth Handler.
func New(auth AuthService, reset ResetFlow, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, reset: reset, logger: logger}
}

// Register mounts the auth routes. requireAuth guards the session-bound
// endpoints; sensitive wraps the credential endpoints in the stricter rate
// limit.
func (h *Handler) Register(r chi.Router, requireAuth, sensitive func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(sensitive)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/forgot-password", h.handleForgotPassword)
		r.Post("/auth/verify-reset-token", h.handleVerifyResetToken)
		r.Post("/auth/reset-password", h.handleResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/me", h.handleMe)
		r.Post("/auth/logout", h.handleLogout)
		r.Post("/auth/logout-all", h.handleLogoutAll)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) Normalize() {
	req.Email = email.Normalize(req.Email)
}

func (req *loginRequest) Validate() error {
	if req.Email == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email and password are required")
	}
	return nil
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.ErrorContext(ctx, "login failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, err := h.auth.GetCurrentUser(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Logout(ctx); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type logoutAllRequest struct {
	KeepCurrent bool `json:"keep_current"`
}

type logoutAllResponse struct {
	RevokedCount int `json:"revoked_count"`
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// An empty body means "log out everywhere, including here".
	req := logoutAllRequest{}
	if r.ContentLength > 0 {
		decoded, ok := httputil.DecodeAndPrepare[logoutAllRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		req = *decoded
	}

	revoked, err := h.auth.LogoutAll(ctx, req.KeepCurrent)
	if err != nil {
		h.logger.ErrorContext(ctx, "logout-all failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, logoutAllResponse{RevokedCount: revoked})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (req *forgotPasswordRequest) Normalize() {
	req.Email = email.Normalize(req.Email)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[forgotPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// Request never reveals whether the address exists; the only caller-visible
	// failure is a malformed request body.
	if err := h.reset.Request(ctx, req.Email); err != nil {
		h.logger.ErrorContext(ctx, "reset request failed",
			"request_id", requestID,
			"error", err,
		)
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset code has been sent",
	})
}

type verifyResetTokenRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (req *verifyResetTokenRequest) Normalize() {
	req.Email = email.Normalize(req.Email)
}

func (req *verifyResetTokenRequest) Validate() error {
	if req.Email == "" || req.Code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email and code are required")
	}
	return nil
}

type verifyResetTokenResponse struct {
	Valid bool `json:"valid"`
}

func (h *Handler) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyResetTokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	valid, err := h.reset.Verify(ctx, req.Email, req.Code)
	if err != nil {
		h.logger.ErrorContext(ctx, "reset verification failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResetTokenResponse{Valid: valid})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (req *resetPasswordRequest) Normalize() {
	req.Email = email.Normalize(req.Email)
}

func (req *resetPasswordRequest) Validate() error {
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email, code, and new_password are required")
	}
	return nil
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[resetPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.reset.Complete(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "reset completion failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
