package gating

import (
	"context"
	"strings"

	"pet-wellness/internal/domain/session"
)

// SubscriptionWriter escribe el flag de suscripción del usuario.
// session.Manager lo implementa.
type SubscriptionWriter interface {
	SetSubscribed(ctx context.Context, userID string, subscribed bool) error
}

// Redeemer valida un código compartido y activa la suscripción.
// Es un mecanismo placeholder: un único secreto para todos los usuarios.
type Redeemer struct {
	secret string
	subs   SubscriptionWriter
}

func NewRedeemer(secret string, subs SubscriptionWriter) *Redeemer {
	return &Redeemer{secret: strings.TrimSpace(secret), subs: subs}
}

// Redeem devuelve true si el código coincide (case-insensitive). Si la sesión
// ya es pro no vuelve a escribir. Código incorrecto => false sin efectos.
func (r *Redeemer) Redeem(ctx context.Context, sc *session.Context, code string) (bool, error) {
	if r.secret == "" || sc == nil {
		return false, nil
	}
	if !strings.EqualFold(strings.TrimSpace(code), r.secret) {
		return false, nil
	}
	if sc.Tier() == session.TierPro {
		return true, nil
	}
	if err := r.subs.SetSubscribed(ctx, sc.ID(), true); err != nil {
		return false, err
	}
	return true, nil
}
