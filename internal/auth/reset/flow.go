package reset

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tenderdesk/internal/audit"
	"tenderdesk/internal/auth/metrics"
	"tenderdesk/internal/auth/secrets"
	"tenderdesk/internal/directory"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/email"
	"tenderdesk/pkg/platform/sentinel"
	"tenderdesk/pkg/requestcontext"
)

// CodeSender delivers a reset code to the address. Email transport is a
// collaborator; the flow only cares that delivery was attempted.
type CodeSender interface {
	Send(ctx context.Context, addr, code string) error
}

// LogSender logs codes instead of delivering them. Development use only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, addr, code string) error {
	s.Logger.Info("password reset code issued", "email", addr, "code", code)
	return nil
}

// Flow drives the reset state machine per email:
// NoChallenge -> Issued -> (Verified -> Consumed) | Expired.
type Flow struct {
	dir     directory.Directory
	store   ChallengeStore
	sender  CodeSender
	ttl     time.Duration
	logger  *slog.Logger
	auditor audit.Publisher
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithAuditor attaches an audit publisher.
func WithAuditor(p audit.Publisher) FlowOption {
	return func(f *Flow) {
		f.auditor = p
	}
}

// NewFlow constructs the reset flow. ttl bounds how long an issued code can
// be used.
func NewFlow(dir directory.Directory, store ChallengeStore, sender CodeSender, ttl time.Duration, logger *slog.Logger, opts ...FlowOption) *Flow {
	f := &Flow{
		dir:    dir,
		store:  store,
		sender: sender,
		ttl:    ttl,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request issues a fresh reset code for the email, invalidating any prior
// challenge. It always reports success to the caller regardless of whether
// the email exists, to resist account enumeration.
func (f *Flow) Request(ctx context.Context, addr string) error {
	now := requestcontext.Now(ctx)

	if !email.IsValid(addr) {
		return nil
	}

	identity, err := f.dir.FindByEmail(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Unknown email: report success, do nothing.
		f.logger.InfoContext(ctx, "reset requested for unknown email",
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if err != nil {
		// Infrastructure failure must not reveal whether the email exists.
		f.logger.ErrorContext(ctx, "directory lookup failed during reset request", "error", err)
		return nil
	}
	if !identity.Active {
		return nil
	}

	code, err := secrets.GenerateResetCode()
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to generate reset code", "error", err)
		return nil
	}

	challenge := Challenge{
		Email:     email.Normalize(addr),
		CodeHash:  secrets.HashCode(code),
		ExpiresAt: now.Add(f.ttl),
	}
	if err := f.store.Put(ctx, challenge); err != nil {
		f.logger.ErrorContext(ctx, "failed to store reset challenge", "error", err)
		return nil
	}

	if err := f.sender.Send(ctx, identity.Email, code); err != nil {
		f.logger.ErrorContext(ctx, "failed to send reset code", "error", err)
	}

	f.logAudit(ctx, audit.Event{
		Timestamp: now,
		UserID:    identity.ID,
		Email:     identity.Email,
		Action:    string(audit.EventResetRequested),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

// Verify reports whether a live challenge exists for the email whose code
// matches. It does not consume the challenge: the UI may confirm the code
// before the user picks a new password.
func (f *Flow) Verify(ctx context.Context, addr, code string) (bool, error) {
	now := requestcontext.Now(ctx)

	challenge, err := f.store.Get(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reset challenge")
	}

	if !challenge.Live(now) {
		return false, nil
	}
	return secrets.CodeMatches(code, challenge.CodeHash), nil
}

// Complete re-verifies the code, atomically consumes the challenge, and
// updates the credential. The consume and the credential update cannot both
// happen twice: a replay fails at the consume step.
func (f *Flow) Complete(ctx context.Context, addr, code, newPassword string) error {
	now := requestcontext.Now(ctx)

	if newPassword == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "new password is required")
	}

	identity, err := f.dir.FindByEmail(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		metrics.RecordResetCompletion("failure")
		return errInvalidOrExpiredCode()
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "directory lookup failed")
	}

	// Hash before consuming: if hashing fails the challenge stays usable.
	hash, err := secrets.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = f.store.Consume(ctx, addr, now, func(codeHash string) bool {
		return secrets.CodeMatches(code, codeHash)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) ||
			errors.Is(err, sentinel.ErrExpired) ||
			errors.Is(err, sentinel.ErrAlreadyUsed) {
			metrics.RecordResetCompletion("failure")
			return errInvalidOrExpiredCode()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume reset challenge")
	}

	if err := f.dir.UpdatePasswordHash(ctx, identity.ID, hash); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential")
	}

	metrics.RecordResetCompletion("success")
	f.logAudit(ctx, audit.Event{
		Timestamp: now,
		UserID:    identity.ID,
		Email:     identity.Email,
		Action:    string(audit.EventResetCompleted),
		RequestID: requestcontext.RequestID(ctx),
	})
	return nil
}

func (f *Flow) logAudit(ctx context.Context, event audit.Event) {
	if f.auditor == nil {
		return
	}
	if err := f.auditor.Emit(ctx, event); err != nil {
		f.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func errInvalidOrExpiredCode() error {
	return dErrors.New(dErrors.CodeInvalidInput, "invalid or expired code")
}
