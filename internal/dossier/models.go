// Package dossier tracks tender dossiers: the procurement files users
// create, submit, and close out. Dossier mutations are the workload the
// idempotency guard protects.
package dossier

import (
	"time"

	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
)

// Status is the lifecycle stage of a dossier.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAwarded   Status = "awarded"
	StatusClosed    Status = "closed"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAwarded, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// Draft dossiers are submitted, submitted ones are awarded or closed, and
// awarded ones are closed. Closed is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusAwarded || next == StatusClosed
	case StatusAwarded:
		return next == StatusClosed
	}
	return false
}

// Dossier is one tender file.
type Dossier struct {
	ID        id.DossierID `json:"id"`
	Reference string       `json:"reference"`
	Title     string       `json:"title"`
	Authority string       `json:"authority"`
	Status    Status       `json:"status"`
	Deadline  *time.Time   `json:"deadline,omitempty"`
	CreatedBy id.UserID    `json:"created_by"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewDossier constructs a draft dossier, validating required fields.
func NewDossier(reference, title, authority string, deadline *time.Time, createdBy id.UserID, now time.Time) (Dossier, error) {
	if reference == "" {
		return Dossier{}, dErrors.New(dErrors.CodeInvalidInput, "reference is required")
	}
	if title == "" {
		return Dossier{}, dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	return Dossier{
		ID:        id.NewDossierID(),
		Reference: reference,
		Title:     title,
		Authority: authority,
		Status:    StatusDraft,
		Deadline:  deadline,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
