package weights

import "context"

type Repository interface {
	Add(ctx context.Context, e Entry) error
	// ListByOwner devuelve las entradas más recientes primero.
	ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]Entry, error)
}
