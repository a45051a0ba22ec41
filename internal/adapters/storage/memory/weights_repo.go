package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"pet-wellness/internal/domain/weights"
)

type weightRepo struct {
	mu      sync.RWMutex
	byOwner map[string][]weights.Entry
}

func NewWeightRepo() weights.Repository {
	return &weightRepo{
		byOwner: make(map[string][]weights.Entry),
	}
}

func (r *weightRepo) Add(ctx context.Context, e weights.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.OwnerUserID) == "" {
		return errors.New("weight id and owner required")
	}
	r.byOwner[e.OwnerUserID] = append(r.byOwner[e.OwnerUserID], e)
	return nil
}

func (r *weightRepo) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]weights.Entry, error) {
	r.mu.RLock()
	src := r.byOwner[ownerUserID]
	out := make([]weights.Entry, len(src))
	copy(out, src)
	r.mu.RUnlock()

	// recorded_at desc
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
