// Package domain holds identifier types shared across features. Typed IDs
// keep a user ID from being passed where a dossier ID belongs; the compiler
// enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "tenderdesk/pkg/domain-errors"
)

type (
	// UserID identifies an identity in the user directory.
	UserID uuid.UUID

	// DossierID identifies a tender dossier.
	DossierID uuid.UUID
)

// NewUserID generates a fresh random user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// NewDossierID generates a fresh random dossier ID.
func NewDossierID() DossierID {
	return DossierID(uuid.New())
}

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id DossierID) String() string { return uuid.UUID(id).String() }
func (id DossierID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's marshaling, so without these the
// IDs would encode as raw byte arrays.

func (id UserID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(data []byte) error {
	u, err := uuid.Parse(string(data))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id DossierID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DossierID) UnmarshalText(data []byte) error {
	u, err := uuid.Parse(string(data))
	if err != nil {
		return err
	}
	*id = DossierID(u)
	return nil
}

// ParseUserID parses and validates a user ID at a trust boundary.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseDossierID parses and validates a dossier ID at a trust boundary.
func ParseDossierID(s string) (DossierID, error) {
	u, err := parse(s)
	if err != nil {
		return DossierID{}, err
	}
	return DossierID(u), nil
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
