package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/domain/session"
)

type userRepo struct {
	mu   sync.RWMutex
	byID map[string]session.User
	now  func() time.Time
}

func NewUserRepo() session.UserRepository {
	return &userRepo{
		byID: make(map[string]session.User),
		now:  time.Now,
	}
}

func (r *userRepo) Get(ctx context.Context, id string) (session.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return session.User{}, session.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u session.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if _, exists := r.byID[u.ID]; exists {
		return session.ErrUserExists
	}
	r.byID[u.ID] = u
	return nil
}

func (r *userRepo) SetSubscribed(ctx context.Context, id string, subscribed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return session.ErrUserNotFound
	}
	u.Subscribed = subscribed
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return nil
}
