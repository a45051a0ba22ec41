package profiles

import "context"

// Repository es el store autoritativo (users/{uid}/pet/profile).
type Repository interface {
	// Get devuelve ErrNotFound si el usuario no tiene perfil.
	Get(ctx context.Context, ownerUserID string) (Profile, error)
	// Put reemplaza el documento completo (upsert).
	Put(ctx context.Context, p Profile) error
	// Delete es idempotente: borrar algo inexistente no es error.
	Delete(ctx context.Context, ownerUserID string) error
}
