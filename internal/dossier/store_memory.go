package dossier

import (
	"context"
	"sort"
	"sync"

	id "tenderdesk/pkg/domain"
	"tenderdesk/pkg/platform/sentinel"
)

// Store is the dossier persistence surface.
type Store interface {
	Create(ctx context.Context, dossier Dossier) error
	Get(ctx context.Context, dossierID id.DossierID) (Dossier, error)
	Update(ctx context.Context, dossier Dossier) error
	Delete(ctx context.Context, dossierID id.DossierID) error
	List(ctx context.Context) ([]Dossier, error)
}

// InMemoryStore keeps dossiers in process memory, keyed by ID with a
// uniqueness index on the tender reference.
type InMemoryStore struct {
	mu          sync.RWMutex
	byID        map[id.DossierID]Dossier
	byReference map[string]id.DossierID
}

// NewInMemoryStore creates an empty dossier store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:        make(map[id.DossierID]Dossier),
		byReference: make(map[string]id.DossierID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, dossier Dossier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReference[dossier.Reference]; exists {
		return sentinel.ErrConflict
	}
	s.byID[dossier.ID] = dossier
	s.byReference[dossier.Reference] = dossier.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, dossierID id.DossierID) (Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dossier, ok := s.byID[dossierID]
	if !ok {
		return Dossier{}, sentinel.ErrNotFound
	}
	return dossier, nil
}

func (s *InMemoryStore) Update(_ context.Context, dossier Dossier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.byID[dossier.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if dossier.Reference != prior.Reference {
		if _, taken := s.byReference[dossier.Reference]; taken {
			return sentinel.ErrConflict
		}
		delete(s.byReference, prior.Reference)
		s.byReference[dossier.Reference] = dossier.ID
	}
	s.byID[dossier.ID] = dossier
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, dossierID id.DossierID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dossier, ok := s.byID[dossierID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byReference, dossier.Reference)
	delete(s.byID, dossierID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Dossier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dossiers := make([]Dossier, 0, len(s.byID))
	for _, dossier := range s.byID {
		dossiers = append(dossiers, dossier)
	}
	sort.Slice(dossiers, func(i, j int) bool {
		return dossiers[i].CreatedAt.After(dossiers[j].CreatedAt)
	})
	return dossiers, nil
}
