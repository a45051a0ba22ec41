package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"pet-wellness/internal/ports/cache"
)

type entry struct {
	val       []byte
	expiresAt time.Time // zero => no expira
}

type memCache struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func New() cache.Cache {
	return newMemCache(time.Now)
}

func newMemCache(now func() time.Time) *memCache {
	return &memCache{
		data: make(map[string]entry),
		now:  now,
	}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return nil, cache.ErrMiss
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// re-chequear: pudo haberse reescrito entre locks
		if cur, ok := c.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, cache.ErrMiss
	}

	// copia para que el caller no mute el valor guardado
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, nil
}

func (c *memCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}

	e := entry{val: make([]byte, len(val))}
	copy(e.val, val)
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.data[key] = e
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
