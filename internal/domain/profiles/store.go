package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/ports/cache"

	"github.com/google/uuid"
)

const (
	DefaultCacheTTL  = 24 * time.Hour
	reconcileTimeout = 10 * time.Second
)

// Change es lo que recibe un suscriptor. Profile == nil => ya no hay perfil.
type Change struct {
	Op      changefeed.Op
	Profile *Profile
}

// Store sincroniza el perfil entre el cache local (rápido, best-effort) y el
// store autoritativo. Regla de reconciliación: cuando llega el dato remoto,
// reemplaza al cacheado sin merge; un "not found" remoto borra el cache.
type Store struct {
	repo  Repository
	cache cache.Cache
	feed  changefeed.Bus
	log   logger.Logger
	ttl   time.Duration

	now   func() time.Time
	newID func() string

	subscribed func(ctx context.Context, sessionID string) (bool, error)

	// reconciliaciones en background (ver Wait)
	wg sync.WaitGroup
}

type StoreOptions struct {
	CacheTTL time.Duration
	Logger   logger.Logger

	// SubscriptionOf siembra el flag del perfil al crearlo. nil => false.
	SubscriptionOf func(ctx context.Context, sessionID string) (bool, error)
}

func NewStore(repo Repository, c cache.Cache, feed changefeed.Bus, opts StoreOptions) *Store {
	if feed == nil {
		feed = changefeed.NewHub()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		repo:  repo,
		cache: c,
		feed:  feed,
		log:   log.With(map[string]any{"component": "profile_store"}),
		ttl:   ttl,
		now:   time.Now,
		newID: uuid.NewString,

		subscribed: opts.SubscriptionOf,
	}
}

// Load devuelve el perfil más reciente conocido. Si hay copia en cache la
// devuelve de inmediato y reconcilia contra el store en background; si no,
// lee el store. (nil, nil) si ninguno tiene registro.
func (s *Store) Load(ctx context.Context, sessionID string) (*Profile, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	if cached, ok := s.readCache(ctx, sessionID); ok {
		s.reconcileAsync(ctx, sessionID, cached)
		return cached, nil
	}
	return s.Fetch(ctx, sessionID)
}

// Fetch lee el store autoritativo de forma síncrona y actualiza el cache.
func (s *Store) Fetch(ctx context.Context, sessionID string) (*Profile, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		s.dropCache(ctx, sessionID)
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get profile", err)
	}

	s.writeCache(ctx, p)
	return &p, nil
}

// Save valida los campos presentes, hace merge sobre el registro existente y
// escribe el store. El cache solo se toca si la escritura remota fue OK.
func (s *Store) Save(ctx context.Context, sessionID string, patch Patch) (*Profile, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	patch = patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, sessionID)
	creating := false
	switch {
	case errors.Is(err, ErrNotFound):
		creating = true
		current = Profile{
			ID:          s.newID(),
			OwnerUserID: sessionID,
			CreatedAt:   s.now(),
		}
	case err != nil:
		return nil, apperr.Persistence("get profile", err)
	}

	if !creating && patch.IsEmpty() {
		return &current, nil
	}

	next := patch.Apply(current)
	if creating {
		if err := validateForCreate(next); err != nil {
			return nil, err
		}
		if patch.Subscribed == nil && s.subscribed != nil {
			sub, err := s.subscribed(ctx, sessionID)
			if err != nil {
				return nil, apperr.Persistence("get subscription", err)
			}
			next.Subscribed = sub
		}
	}

	// ID y owner son inmutables.
	next.ID = current.ID
	next.OwnerUserID = sessionID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()

	if err := s.repo.Put(ctx, next); err != nil {
		return nil, apperr.Persistence("put profile", err)
	}

	s.writeCache(ctx, next)
	s.publish(ctx, sessionID, changefeed.OpSaved, &next)
	return &next, nil
}

// SetSubscribed refleja el flag de suscripción en el perfil existente. Sin
// perfil no hace nada: se siembra al crearlo.
func (s *Store) SetSubscribed(ctx context.Context, sessionID string, subscribed bool) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Persistence("get profile", err)
	}
	if current.Subscribed == subscribed {
		return nil
	}
	_, err = s.Save(ctx, sessionID, Patch{Subscribed: &subscribed})
	return err
}

// Clear borra el registro remoto y, solo si eso funcionó, el cache.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return apperr.Persistence("delete profile", err)
	}

	s.dropCache(ctx, sessionID)
	s.publish(ctx, sessionID, changefeed.OpDeleted, nil)
	return nil
}

// Subscribe registra fn para cada cambio del perfil de la sesión. El caller
// debe llamar al CancelFunc al desmontar la vista.
func (s *Store) Subscribe(ctx context.Context, sessionID string, fn func(Change)) (changefeed.CancelFunc, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, changefeed.ErrInvalidSubscription
	}

	return s.feed.Subscribe(ctx, changefeed.TopicProfile, sessionID, func(e changefeed.Event) {
		ch := Change{Op: e.Op}
		if len(e.Payload) > 0 {
			var p Profile
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				s.log.Warn("bad profile change payload", map[string]any{"error": err})
				return
			}
			ch.Profile = &p
		}
		fn(ch)
	})
}

// Wait bloquea hasta que terminen las reconciliaciones en curso.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) reconcileAsync(parent context.Context, sessionID string, cached *Profile) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// no heredamos la cancelación del request que disparó el Load
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), reconcileTimeout)
		defer cancel()

		remote, err := s.repo.Get(ctx, sessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			s.dropCache(ctx, sessionID)
			s.publish(ctx, sessionID, changefeed.OpReconciled, nil)
		case err != nil:
			s.log.Warn("profile reconcile failed", map[string]any{"session_id": sessionID, "error": err})
		default:
			s.writeCache(ctx, remote)
			if !remote.sameAs(*cached) {
				s.publish(ctx, sessionID, changefeed.OpReconciled, &remote)
			}
		}
	}()
}

func (s *Store) readCache(ctx context.Context, sessionID string) (*Profile, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, cacheKey(sessionID))
	if errors.Is(err, cache.ErrMiss) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("profile cache read failed", map[string]any{"session_id": sessionID, "error": err})
		return nil, false
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("profile cache entry corrupt", map[string]any{"session_id": sessionID, "error": err})
		s.dropCache(ctx, sessionID)
		return nil, false
	}
	return &p, true
}

func (s *Store) writeCache(ctx context.Context, p Profile) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		s.log.Warn("profile cache encode failed", map[string]any{"error": err})
		return
	}
	if err := s.cache.Set(ctx, cacheKey(p.OwnerUserID), raw, s.ttl); err != nil {
		s.log.Warn("profile cache write failed", map[string]any{"session_id": p.OwnerUserID, "error": err})
	}
}

func (s *Store) dropCache(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(sessionID)); err != nil {
		s.log.Warn("profile cache delete failed", map[string]any{"session_id": sessionID, "error": err})
	}
}

// publish es best-effort: la escritura autoritativa ya ocurrió.
func (s *Store) publish(ctx context.Context, sessionID string, op changefeed.Op, p *Profile) {
	e := changefeed.Event{
		Topic: changefeed.TopicProfile,
		Key:   sessionID,
		Op:    op,
		At:    s.now().UTC(),
	}
	if p != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			s.log.Warn("profile change encode failed", map[string]any{"error": err})
			return
		}
		e.Payload = raw
	}
	if err := s.feed.Publish(ctx, e); err != nil {
		s.log.Warn("profile change publish failed", map[string]any{"session_id": sessionID, "error": err})
	}
}

func cacheKey(sessionID string) string {
	return "profile:" + sessionID
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &apperr.AuthenticationError{Reason: "session required"}
	}
	return nil
}

func (p Profile) sameAs(o Profile) bool {
	return p.ID == o.ID &&
		p.OwnerUserID == o.OwnerUserID &&
		p.Name == o.Name &&
		p.Species == o.Species &&
		p.Breed == o.Breed &&
		p.Age == o.Age &&
		p.Weight == o.Weight &&
		p.Allergies == o.Allergies &&
		p.HealthGoal == o.HealthGoal &&
		p.AvatarURL == o.AvatarURL &&
		p.Subscribed == o.Subscribed &&
		p.CreatedAt.Equal(o.CreatedAt) &&
		p.UpdatedAt.Equal(o.UpdatedAt)
}
