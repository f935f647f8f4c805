package directory

import (
	"context"
	"sync"
	"time"

	id "tenderdesk/pkg/domain"
	"tenderdesk/pkg/email"
	"tenderdesk/pkg/platform/sentinel"
)

// InMemoryDirectory keeps identities in process memory. It intentionally
// favors clarity over performance.
type InMemoryDirectory struct {
	mu      sync.RWMutex
	byID    map[id.UserID]Identity
	byEmail map[string]id.UserID
}

// NewInMemoryDirectory creates an empty in-memory directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		byID:    make(map[id.UserID]Identity),
		byEmail: make(map[string]id.UserID),
	}
}

func (d *InMemoryDirectory) Create(_ context.Context, identity Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := email.Normalize(identity.Email)
	if _, exists := d.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	d.byID[identity.ID] = identity
	d.byEmail[key] = identity.ID
	return nil
}

func (d *InMemoryDirectory) FindByID(_ context.Context, userID id.UserID) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	identity, ok := d.byID[userID]
	if !ok {
		return Identity{}, sentinel.ErrNotFound
	}
	return identity, nil
}

func (d *InMemoryDirectory) FindByEmail(_ context.Context, addr string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	userID, ok := d.byEmail[email.Normalize(addr)]
	if !ok {
		return Identity{}, sentinel.ErrNotFound
	}
	return d.byID[userID], nil
}

func (d *InMemoryDirectory) UpdateLastLogin(_ context.Context, userID id.UserID, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	identity.LastLogin = &at
	d.byID[userID] = identity
	return nil
}

func (d *InMemoryDirectory) UpdatePasswordHash(_ context.Context, userID id.UserID, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	identity.PasswordHash = hash
	d.byID[userID] = identity
	return nil
}

// Update replaces an identity record wholesale. Deactivation and role
// changes go through here; the auth engine itself only ever touches
// LastLogin and PasswordHash.
func (d *InMemoryDirectory) Update(_ context.Context, identity Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prior, ok := d.byID[identity.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	priorKey := email.Normalize(prior.Email)
	key := email.Normalize(identity.Email)
	if key != priorKey {
		if _, taken := d.byEmail[key]; taken {
			return sentinel.ErrConflict
		}
		delete(d.byEmail, priorKey)
		d.byEmail[key] = identity.ID
	}
	d.byID[identity.ID] = identity
	return nil
}

func (d *InMemoryDirectory) List(_ context.Context) ([]Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	identities := make([]Identity, 0, len(d.byID))
	for _, identity := range d.byID {
		identities = append(identities, identity)
	}
	return identities, nil
}
