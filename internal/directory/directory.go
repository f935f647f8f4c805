// Package directory models the user directory the auth engine consults.
// The directory itself is an external collaborator; this package owns only
// the interface and an in-memory implementation used for tests and
// single-node deployments.
package directory

import (
	"context"
	"time"

	id "tenderdesk/pkg/domain"
)

// Role is the coarse authorization level of an identity.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}

// Identity is the primary record tracked by the directory. The auth engine
// reads it and updates only LastLogin and PasswordHash.
type Identity struct {
	ID           id.UserID
	Name         string
	Email        string
	Role         Role
	Active       bool
	SuperAdmin   bool
	CreatedAt    time.Time
	LastLogin    *time.Time
	PasswordHash string
}

// Directory is the lookup/update surface the auth engine depends on.
// Implementations must treat email lookups as case-insensitive.
type Directory interface {
	FindByID(ctx context.Context, userID id.UserID) (Identity, error)
	FindByEmail(ctx context.Context, email string) (Identity, error)
	Create(ctx context.Context, identity Identity) error
	UpdateLastLogin(ctx context.Context, userID id.UserID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID id.UserID, hash string) error
	List(ctx context.Context) ([]Identity, error)
}
