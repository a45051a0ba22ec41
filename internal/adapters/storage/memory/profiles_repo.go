package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pet-wellness/internal/domain/profiles"
)

// profileRepo guarda users/{uid}/pet/profile: un documento por owner.
type profileRepo struct {
	mu      sync.RWMutex
	byOwner map[string]profiles.Profile
}

func NewProfileRepo() profiles.Repository {
	return &profileRepo{
		byOwner: make(map[string]profiles.Profile),
	}
}

func (r *profileRepo) Get(ctx context.Context, ownerUserID string) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byOwner[ownerUserID]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

func (r *profileRepo) Put(ctx context.Context, p profiles.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.OwnerUserID) == "" || strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id and owner required")
	}
	r.byOwner[p.OwnerUserID] = p
	return nil
}

// Delete es idempotente.
func (r *profileRepo) Delete(ctx context.Context, ownerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byOwner, ownerUserID)
	return nil
}
