package session

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	ErrClosed       = errors.New("session closed")
)

// Tier es el nivel de suscripción derivado del registro de usuario.
// @Enum free, pro
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func tierOf(subscribed bool) Tier {
	if subscribed {
		return TierPro
	}
	return TierFree
}

// User es el registro users/{uid}. Subscribed es la fuente del tier.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Subscribed bool      `json:"isSubscribed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Context es la sesión abierta de un usuario. El tier se actualiza solo cuando
// cambia el registro de usuario; los lectores ven siempre un valor consistente.
type Context struct {
	id    string
	admin bool

	mu       sync.RWMutex
	email    string
	tier     Tier
	closed   bool
	lastSeen time.Time

	cancel func()
}

func (c *Context) ID() string { return c.id }

func (c *Context) Email() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.email
}

func (c *Context) Tier() Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tier
}

func (c *Context) IsPro() bool { return c.Tier() == TierPro }

// IsAdmin es una comparación de email contra la config, no un control de
// seguridad.
func (c *Context) IsAdmin() bool { return c.admin }

func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Context) setTier(t Tier) {
	c.mu.Lock()
	c.tier = t
	c.mu.Unlock()
}

func (c *Context) touch(at time.Time) {
	c.mu.Lock()
	c.lastSeen = at
	c.mu.Unlock()
}

func (c *Context) idleSince(cutoff time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeen.Before(cutoff)
}

func (c *Context) close() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()

	if !already && c.cancel != nil {
		c.cancel()
	}
}

// View es la foto serializable de la sesión.
type View struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Tier    Tier   `json:"tier"`
	IsAdmin bool   `json:"isAdmin"`
}

func (c *Context) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return View{ID: c.id, Email: c.email, Tier: c.tier, IsAdmin: c.admin}
}
