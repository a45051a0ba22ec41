package session

import "context"

type UserRepository interface {
	// Get devuelve ErrUserNotFound si no existe.
	Get(ctx context.Context, id string) (User, error)
	// Create devuelve ErrUserExists si ya existe.
	Create(ctx context.Context, u User) error
	SetSubscribed(ctx context.Context, id string, subscribed bool) error
}
