package dossier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tenderdesk/internal/audit"
	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
	"tenderdesk/pkg/platform/sentinel"
	"tenderdesk/pkg/requestcontext"
)

// Service owns dossier business rules: creation, edits while in draft, and
// lifecycle transitions.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor audit.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithAuditor attaches an audit publisher.
func WithAuditor(p audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// NewService creates the dossier service.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the fields of a new dossier.
type CreateInput struct {
	Reference string
	Title     string
	Authority string
	Deadline  *time.Time
}

// Create opens a new draft dossier owned by the authenticated caller.
func (s *Service) Create(ctx context.Context, input CreateInput) (Dossier, error) {
	now := requestcontext.Now(ctx)

	dossier, err := NewDossier(input.Reference, input.Title, input.Authority, input.Deadline, requestcontext.UserID(ctx), now)
	if err != nil {
		return Dossier{}, err
	}

	if err := s.store.Create(ctx, dossier); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Dossier{}, dErrors.New(dErrors.CodeConflict, "a dossier with this reference already exists")
		}
		return Dossier{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create dossier")
	}

	s.logAudit(ctx, dossier, "created")
	return dossier, nil
}

// Get returns one dossier by ID.
func (s *Service) Get(ctx context.Context, dossierID id.DossierID) (Dossier, error) {
	dossier, err := s.store.Get(ctx, dossierID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Dossier{}, dErrors.New(dErrors.CodeNotFound, "dossier not found")
	}
	if err != nil {
		return Dossier{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dossier")
	}
	return dossier, nil
}

// List returns all dossiers, newest first.
func (s *Service) List(ctx context.Context) ([]Dossier, error) {
	dossiers, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list dossiers")
	}
	return dossiers, nil
}

// UpdateInput carries the editable fields of a dossier. Nil fields are left
// unchanged.
type UpdateInput struct {
	Title     *string
	Authority *string
	Deadline  *time.Time
}

// Update edits a dossier's descriptive fields. Only drafts are editable;
// once submitted, the record is what the authority received.
func (s *Service) Update(ctx context.Context, dossierID id.DossierID, input UpdateInput) (Dossier, error) {
	dossier, err := s.Get(ctx, dossierID)
	if err != nil {
		return Dossier{}, err
	}

	if dossier.Status != StatusDraft {
		return Dossier{}, dErrors.New(dErrors.CodeConflict, "only draft dossiers can be edited")
	}

	if input.Title != nil {
		if *input.Title == "" {
			return Dossier{}, dErrors.New(dErrors.CodeInvalidInput, "title is required")
		}
		dossier.Title = *input.Title
	}
	if input.Authority != nil {
		dossier.Authority = *input.Authority
	}
	if input.Deadline != nil {
		dossier.Deadline = input.Deadline
	}
	dossier.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, dossier); err != nil {
		return Dossier{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
	}

	s.logAudit(ctx, dossier, "updated")
	return dossier, nil
}

// Delete removes a dossier. Only drafts can be deleted; anything that
// reached the authority stays on record and is closed instead.
func (s *Service) Delete(ctx context.Context, dossierID id.DossierID) error {
	dossier, err := s.Get(ctx, dossierID)
	if err != nil {
		return err
	}

	if dossier.Status != StatusDraft {
		return dErrors.New(dErrors.CodeConflict, "only draft dossiers can be deleted")
	}

	if err := s.store.Delete(ctx, dossierID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete dossier")
	}

	s.logAudit(ctx, dossier, "deleted")
	return nil
}

// Transition moves a dossier to the next lifecycle stage, enforcing the
// allowed transitions.
func (s *Service) Transition(ctx context.Context, dossierID id.DossierID, next Status) (Dossier, error) {
	if !next.IsValid() {
		return Dossier{}, dErrors.New(dErrors.CodeInvalidInput, "unknown status")
	}

	dossier, err := s.Get(ctx, dossierID)
	if err != nil {
		return Dossier{}, err
	}

	if !dossier.Status.CanTransitionTo(next) {
		return Dossier{}, dErrors.Newf(dErrors.CodeConflict, "cannot move a %s dossier to %s", dossier.Status, next)
	}

	dossier.Status = next
	dossier.UpdatedAt = requestcontext.Now(ctx)

	if err := s.store.Update(ctx, dossier); err != nil {
		return Dossier{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update dossier")
	}

	s.logAudit(ctx, dossier, "status changed to "+string(next))
	return dossier, nil
}

func (s *Service) logAudit(ctx context.Context, dossier Dossier, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    requestcontext.UserID(ctx),
		Action:    string(audit.EventDossierMutated),
		Reason:    dossier.Reference + ": " + reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
	}
}
