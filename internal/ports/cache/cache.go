package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Cache es el almacenamiento rápido local (clave/valor). Es best-effort:
// quien lo use no debe fallar una operación por un error de cache.
type Cache interface {
	// Get devuelve ErrMiss si la clave no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set con ttl <= 0 no expira.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
