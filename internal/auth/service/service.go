// Package service implements the authentication engine: credential
// verification, token issuance, and session lifecycle. Handlers stay thin;
// all policy lives here.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tenderdesk/internal/audit"
	"tenderdesk/internal/auth/metrics"
	"tenderdesk/internal/auth/secrets"
	"tenderdesk/internal/auth/session"
	"tenderdesk/internal/auth/token"
	"tenderdesk/internal/directory"
	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	mwauth "tenderdesk/pkg/platform/middleware/auth"
	"tenderdesk/pkg/platform/sentinel"
	"tenderdesk/pkg/requestcontext"
)

// Profile is the caller-visible view of an identity. Password material never
// leaves the service.
type Profile struct {
	ID         id.UserID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	SuperAdmin bool       `json:"super_admin"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// LoginResult carries the issued token and the profile it authenticates.
type LoginResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// Service is the authentication engine.
type Service struct {
	dir      directory.Directory
	codec    *token.Codec
	sessions session.Store
	tokenTTL time.Duration
	logger   *slog.Logger
	auditor  audit.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithAuditor attaches an audit publisher.
func WithAuditor(p audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// New constructs the auth service.
func New(dir directory.Directory, codec *token.Codec, sessions session.Store, tokenTTL time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		dir:      dir,
		codec:    codec,
		sessions: sessions,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials, issues a bearer token, and records the
// session. Unknown email, wrong password, and deactivated account all fail
// with the same error; the unknown-email path burns a bcrypt comparison so
// it costs the same as the known-email path.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	now := requestcontext.Now(ctx)

	identity, err := s.dir.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		secrets.BurnPasswordCheck(password)
		s.recordLoginFailure(ctx, now, id.UserID{}, email, "unknown email")
		return LoginResult{}, errInvalidCredentials()
	}
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
	}

	ok, err := secrets.VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "credential verification failed")
	}
	if !ok {
		s.recordLoginFailure(ctx, now, identity.ID, identity.Email, "wrong password")
		return LoginResult{}, errInvalidCredentials()
	}
	if !identity.Active {
		s.recordLoginFailure(ctx, now, identity.ID, identity.Email, "account deactivated")
		return LoginResult{}, errInvalidCredentials()
	}

	signed, err := s.codec.Issue(identity.ID, string(identity.Role), s.tokenTTL)
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "token issuance failed")
	}

	err = s.sessions.Record(ctx, session.Session{
		Token:     signed,
		UserID:    identity.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenTTL),
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
	if err != nil {
		return LoginResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "session recording failed")
	}

	if err := s.dir.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		// The session is live; a stale LastLogin is not worth failing the login.
		s.logger.WarnContext(ctx, "failed to update last login",
			"user_id", identity.ID.String(),
			"error", err,
		)
	}

	metrics.RecordLogin("success")
	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		UserID:    identity.ID,
		Email:     identity.Email,
		Action:    string(audit.EventLoginSucceeded),
		RequestID: requestcontext.RequestID(ctx),
	})

	identity.LastLogin = &now
	return LoginResult{Token: signed, User: profileOf(identity)}, nil
}

// VerifyToken resolves a bearer token to its principal. The token must both
// carry a valid signature and correspond to a live session; either check
// failing yields the same unauthorized error.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (mwauth.Principal, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return mwauth.Principal{}, err
	}

	active, err := s.sessions.IsActive(ctx, tokenString)
	if err != nil {
		return mwauth.Principal{}, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}
	if !active {
		return mwauth.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return mwauth.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	return mwauth.Principal{UserID: userID, Role: claims.Role}, nil
}

// GetCurrentUser reads the authenticated caller's profile fresh from the
// directory, so role changes and deactivation take effect immediately.
func (s *Service) GetCurrentUser(ctx context.Context) (Profile, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}

	identity, err := s.dir.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
	}
	if !identity.Active {
		return Profile{}, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	return profileOf(identity), nil
}

// Logout revokes the session behind the presented token. Revoking an
// already-dead session succeeds: logout is idempotent.
func (s *Service) Logout(ctx context.Context) error {
	tokenString := requestcontext.BearerToken(ctx)
	if tokenString == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}

	if err := s.sessions.Revoke(ctx, tokenString); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session revocation failed")
	}

	metrics.RecordSessionsRevoked(1)
	s.logAudit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(audit.EventSessionRevoked),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// LogoutAll revokes every session. With keepCurrent the caller's own session
// survives ("log out everywhere else"). Returns the number revoked.
func (s *Service) LogoutAll(ctx context.Context, keepCurrent bool) (int, error) {
	start := time.Now()

	exceptToken := ""
	if keepCurrent {
		exceptToken = requestcontext.BearerToken(ctx)
	}

	revoked, err := s.sessions.RevokeAll(ctx, exceptToken)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "session revocation failed")
	}

	metrics.RecordSessionsRevoked(revoked)
	metrics.ObserveLogoutAll(float64(time.Since(start).Milliseconds()))
	s.logAudit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(audit.EventSessionsCleared),
		RequestID: requestcontext.RequestID(ctx),
	})

	s.logger.InfoContext(ctx, "sessions revoked",
		"count", revoked,
		"kept_current", keepCurrent,
	)
	return revoked, nil
}

// ClearAllSessions revokes every session unconditionally, including the
// caller's. Administrative reset path.
func (s *Service) ClearAllSessions(ctx context.Context) (int, error) {
	revoked, err := s.sessions.RevokeAll(ctx, "")
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "session revocation failed")
	}

	metrics.RecordSessionsRevoked(revoked)
	s.logAudit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(audit.EventSessionsCleared),
		Reason:    "administrative clear",
		RequestID: requestcontext.RequestID(ctx),
	})
	return revoked, nil
}

// Sessions exposes the underlying session store for administrative listing.
func (s *Service) Sessions() session.Store {
	return s.sessions
}

func (s *Service) recordLoginFailure(ctx context.Context, now time.Time, userID id.UserID, email, reason string) {
	metrics.RecordLogin("failure")
	s.logger.WarnContext(ctx, "login failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.logAudit(ctx, audit.Event{
		Timestamp: now,
		UserID:    userID,
		Email:     email,
		Action:    string(audit.EventLoginFailed),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func profileOf(identity directory.Identity) Profile {
	return Profile{
		ID:         identity.ID,
		Name:       identity.Name,
		Email:      identity.Email,
		Role:       string(identity.Role),
		SuperAdmin: identity.SuperAdmin,
		LastLogin:  identity.LastLogin,
	}
}

func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
