package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/middleware"
	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/changefeed"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/ports/auth"
)

type Options struct {
	// AdminEmail habilita IsAdmin por comparación case-insensitive.
	AdminEmail string
	Logger     logger.Logger

	// Profiles recibe el flag de suscripción para reflejarlo en el perfil.
	Profiles ProfileFlagger

	// IdleTimeout cierra sesiones sin requests. 0 => DefaultIdleTimeout;
	// negativo => nunca.
	IdleTimeout time.Duration
}

const DefaultIdleTimeout = 30 * time.Minute

// ProfileFlagger es el lado del perfil que copia el flag de suscripción.
type ProfileFlagger interface {
	SetSubscribed(ctx context.Context, userID string, subscribed bool) error
}

// Manager abre y cierra sesiones. Cada sesión abierta queda suscrita al
// registro users/{uid} y re-deriva el tier en cada cambio.
type Manager struct {
	users      UserRepository
	profiles   ProfileFlagger
	feed       changefeed.Bus
	adminEmail string
	log        logger.Logger
	now        func() time.Time
	idle       time.Duration

	mu        sync.Mutex
	sessions  map[string]*Context
	lastSweep time.Time
}

func NewManager(users UserRepository, feed changefeed.Bus, opts Options) *Manager {
	if feed == nil {
		feed = changefeed.NewHub()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	idle := opts.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		users:      users,
		profiles:   opts.Profiles,
		feed:       feed,
		adminEmail: strings.TrimSpace(opts.AdminEmail),
		log:        log.With(map[string]any{"component": "session"}),
		now:        time.Now,
		idle:       idle,
		sessions:   make(map[string]*Context),
	}
}

// Open devuelve la sesión del usuario autenticado, creándola si hace falta.
// Si el registro de usuario no existe se crea con tier free.
func (m *Manager) Open(ctx context.Context, claims auth.Claims) (*Context, error) {
	id := strings.TrimSpace(claims.UserID)
	if id == "" {
		return nil, &apperr.AuthenticationError{Reason: "missing user id"}
	}

	m.sweepIfDue()

	if sc := m.lookup(id); sc != nil {
		sc.touch(m.now())
		return sc, nil
	}

	u, err := m.ensureUser(ctx, id, strings.TrimSpace(claims.Email))
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		email = u.Email
	}

	sc := &Context{
		id:    id,
		email: email,
		tier:  tierOf(u.Subscribed),
		admin: m.isAdmin(email),

		lastSeen: m.now(),
	}

	cancel, err := m.feed.Subscribe(context.Background(), changefeed.TopicUser, id, func(e changefeed.Event) {
		m.onUserChange(sc, e)
	})
	if err != nil {
		return nil, err
	}
	sc.cancel = cancel

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		// otro request abrió la misma sesión mientras leíamos
		m.mu.Unlock()
		cancel()
		existing.touch(m.now())
		return existing, nil
	}
	m.sessions[id] = sc
	m.mu.Unlock()

	m.log.Info("session opened", map[string]any{"user_id": id, "tier": string(sc.Tier())})
	return sc, nil
}

// FromRequest abre (o reutiliza) la sesión de los claims del request.
func (m *Manager) FromRequest(r *http.Request) (*Context, error) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return nil, &apperr.AuthenticationError{Reason: "missing credentials"}
	}
	return m.Open(r.Context(), claims)
}

// Logout cierra la sesión y corta su suscripción.
func (m *Manager) Logout(userID string) {
	m.mu.Lock()
	sc, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		sc.close()
		m.log.Info("session closed", map[string]any{"user_id": userID})
	}
}

// Close cierra todas las sesiones (shutdown).
func (m *Manager) Close() {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[string]*Context)
	m.mu.Unlock()

	for _, sc := range open {
		sc.close()
	}
}

// SetSubscribed escribe el flag en users/{uid}, lo copia al perfil si existe
// y notifica a las sesiones abiertas (en esta u otra instancia, según el bus).
func (m *Manager) SetSubscribed(ctx context.Context, userID string, subscribed bool) error {
	if err := m.users.SetSubscribed(ctx, userID, subscribed); err != nil {
		return apperr.Persistence("set subscribed", err)
	}
	m.publishUser(ctx, userID, subscribed)

	if m.profiles != nil {
		if err := m.profiles.SetSubscribed(ctx, userID, subscribed); err != nil {
			return err
		}
	}
	return nil
}

// IsSubscribed lee el flag de users/{uid}. Sin registro => false.
func (m *Manager) IsSubscribed(ctx context.Context, userID string) (bool, error) {
	u, err := m.users.Get(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Subscribed, nil
}

func (m *Manager) publishUser(ctx context.Context, userID string, subscribed bool) {
	u, err := m.users.Get(ctx, userID)
	if err != nil {
		m.log.Warn("user reload failed", map[string]any{"user_id": userID, "error": err})
		u = User{ID: userID, Subscribed: subscribed}
	}

	payload, err := json.Marshal(u)
	if err != nil {
		m.log.Warn("user change encode failed", map[string]any{"user_id": userID, "error": err})
		return
	}
	if err := m.feed.Publish(ctx, changefeed.Event{
		Topic:   changefeed.TopicUser,
		Key:     userID,
		Op:      changefeed.OpSaved,
		Payload: payload,
		At:      m.now().UTC(),
	}); err != nil {
		m.log.Warn("user change publish failed", map[string]any{"user_id": userID, "error": err})
	}
}

// Sweep cierra las sesiones sin actividad en el último IdleTimeout y devuelve
// cuántas cerró. La próxima request del usuario la vuelve a abrir.
func (m *Manager) Sweep() int {
	if m.idle < 0 {
		return 0
	}
	now := m.now()
	cutoff := now.Add(-m.idle)

	m.mu.Lock()
	m.lastSweep = now
	var idle []*Context
	for id, sc := range m.sessions {
		if sc.idleSince(cutoff) {
			idle = append(idle, sc)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sc := range idle {
		sc.close()
	}
	if len(idle) > 0 {
		m.log.Info("idle sessions closed", map[string]any{"count": len(idle)})
	}
	return len(idle)
}

// sweepIfDue barre como mucho una vez por IdleTimeout.
func (m *Manager) sweepIfDue() {
	if m.idle < 0 {
		return
	}
	m.mu.Lock()
	due := m.now().Sub(m.lastSweep) >= m.idle
	m.mu.Unlock()
	if due {
		m.Sweep()
	}
}

// Active cuenta las sesiones abiertas.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *Manager) ensureUser(ctx context.Context, id, email string) (User, error) {
	u, err := m.users.Get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return User{}, apperr.Persistence("get user", err)
	}

	now := m.now().UTC()
	u = User{ID: id, Email: email, Subscribed: false, CreatedAt: now, UpdatedAt: now}
	err = m.users.Create(ctx, u)
	switch {
	case err == nil:
		m.log.Info("user provisioned", map[string]any{"user_id": id})
		return u, nil
	case errors.Is(err, ErrUserExists):
		// carrera con otro Open: el registro ya está
		u, err = m.users.Get(ctx, id)
		if err != nil {
			return User{}, apperr.Persistence("get user", err)
		}
		return u, nil
	default:
		return User{}, apperr.Persistence("create user", err)
	}
}

func (m *Manager) onUserChange(sc *Context, e changefeed.Event) {
	if e.Op == changefeed.OpDeleted || len(e.Payload) == 0 {
		sc.setTier(TierFree)
		return
	}
	var u User
	if err := json.Unmarshal(e.Payload, &u); err != nil {
		m.log.Warn("bad user change payload", map[string]any{"user_id": sc.id, "error": err})
		return
	}
	sc.setTier(tierOf(u.Subscribed))
}

func (m *Manager) isAdmin(email string) bool {
	return m.adminEmail != "" && email != "" && strings.EqualFold(email, m.adminEmail)
}
