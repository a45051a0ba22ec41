package payments

import (
	"context"
	"errors"
	"strings"

	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/logger"
)

var (
	ErrNotConfigured = errors.New("payment gateway not configured")
	ErrNotCompleted  = errors.New("payment not completed")
)

const StatusCompleted = "COMPLETED"

// OrderRequest es lo que se manda al gateway para crear una orden.
type OrderRequest struct {
	UserID      string
	Amount      string
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

// Order es la vista mínima de una orden del gateway.
type Order struct {
	ID         string
	Status     string
	ApproveURL string
	// UserID viaja como custom_id y vuelve en el capture.
	UserID string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	CaptureOrder(ctx context.Context, orderID string) (Order, error)
}

// SubscriptionWriter activa el flag del usuario (session.Manager).
type SubscriptionWriter interface {
	SetSubscribed(ctx context.Context, userID string, subscribed bool) error
}

// Plan es el producto que se cobra.
type Plan struct {
	Amount      string
	Currency    string
	Description string
	ReturnURL   string
	CancelURL   string
}

type Service struct {
	gw   Gateway
	subs SubscriptionWriter
	plan Plan
	log  logger.Logger
}

func NewService(gw Gateway, subs SubscriptionWriter, plan Plan, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(plan.Currency) == "" {
		plan.Currency = "USD"
	}
	return &Service{gw: gw, subs: subs, plan: plan, log: log.With(map[string]any{"component": "payments"})}
}

// CheckoutResult es el contrato hacia el cliente: {success, redirectUrl | error}.
type CheckoutResult struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Checkout crea la orden y devuelve la URL de aprobación. Nunca devuelve error:
// las fallas van en el resultado.
func (s *Service) Checkout(ctx context.Context, userID string) CheckoutResult {
	if strings.TrimSpace(userID) == "" {
		return CheckoutResult{Error: (&apperr.AuthenticationError{Reason: "session required"}).Error()}
	}
	if s.gw == nil {
		return CheckoutResult{Error: ErrNotConfigured.Error()}
	}

	order, err := s.gw.CreateOrder(ctx, OrderRequest{
		UserID:      userID,
		Amount:      s.plan.Amount,
		Currency:    s.plan.Currency,
		Description: s.plan.Description,
		ReturnURL:   s.plan.ReturnURL,
		CancelURL:   s.plan.CancelURL,
	})
	if err != nil {
		s.log.Warn("checkout failed", map[string]any{"user_id": userID, "error": err})
		return CheckoutResult{Error: err.Error()}
	}
	if order.ApproveURL == "" {
		s.log.Warn("checkout without approve link", map[string]any{"user_id": userID, "order_id": order.ID})
		return CheckoutResult{Error: "payment gateway returned no approval url"}
	}

	s.log.Info("checkout created", map[string]any{"user_id": userID, "order_id": order.ID})
	return CheckoutResult{Success: true, RedirectURL: order.ApproveURL}
}

// Complete captura la orden aprobada y activa la suscripción del usuario
// dueño de la orden.
func (s *Service) Complete(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, apperr.Validation("token", "is required")
	}
	if s.gw == nil {
		return Order{}, &apperr.UpstreamError{Service: "payments", Err: ErrNotConfigured}
	}

	order, err := s.gw.CaptureOrder(ctx, orderID)
	if err != nil {
		return Order{}, &apperr.UpstreamError{Service: "payments", Err: err}
	}
	if order.Status != StatusCompleted {
		return order, &apperr.UpstreamError{Service: "payments", Err: ErrNotCompleted}
	}
	if strings.TrimSpace(order.UserID) == "" {
		return order, &apperr.UpstreamError{Service: "payments", Err: errors.New("order has no user reference")}
	}

	if err := s.subs.SetSubscribed(ctx, order.UserID, true); err != nil {
		return order, err
	}

	s.log.Info("subscription activated", map[string]any{"user_id": order.UserID, "order_id": order.ID})
	return order, nil
}
