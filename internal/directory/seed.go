package directory

import (
	"context"
	"fmt"
	"time"

	id "tenderdesk/pkg/domain"
	"tenderdesk/pkg/email"
)

// SeedIdentity provisions an identity from an email, password hash, and
// role, deriving a display name from the address. Returns the created
// identity so callers can log or assert on it.
func SeedIdentity(ctx context.Context, dir Directory, addr, passwordHash string, role Role) (Identity, error) {
	first, last := email.DeriveNameFromEmail(addr)

	identity := Identity{
		ID:           id.NewUserID(),
		Name:         first + " " + last,
		Email:        email.Normalize(addr),
		Role:         role,
		Active:       true,
		SuperAdmin:   role == RoleAdmin,
		CreatedAt:    time.Now(),
		PasswordHash: passwordHash,
	}
	if err := dir.Create(ctx, identity); err != nil {
		return Identity{}, fmt.Errorf("seed identity %s: %w", identity.Email, err)
	}
	return identity, nil
}
