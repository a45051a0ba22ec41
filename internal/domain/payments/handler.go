package payments

import (
	"net/http"
	"strings"

	"pet-wellness/internal/middleware"
	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/payments", func(pr chi.Router) {
		pr.Post("/checkout", checkoutHandler(svc))

		// Redirect del gateway tras la aprobación: no trae credenciales, el
		// usuario sale del custom_id de la orden.
		pr.Get("/return", returnHandler(svc))
	})
}

type completeResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// checkoutHandler godoc
// @Summary Iniciar checkout de suscripción
// @Description Crea una orden en el gateway de pagos y devuelve la URL de aprobación.
// @Tags payments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} CheckoutResult
// @Failure 401 {object} apperr.Envelope
// @Failure 502 {object} CheckoutResult
// @Router /payments/checkout [post]
func checkoutHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		res := svc.Checkout(r.Context(), claims.UserID)
		status := http.StatusOK
		if !res.Success {
			status = http.StatusBadGateway
		}
		respond.JSON(w, status, res)
	}
}

// returnHandler godoc
// @Summary Retorno del gateway de pagos
// @Description Captura la orden aprobada (`token` = id de la orden) y activa el tier pro del usuario.
// @Tags payments
// @Produce json
// @Param token query string true "ID de la orden"
// @Success 200 {object} completeResponse
// @Failure 400 {object} apperr.Envelope
// @Failure 502 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /payments/return [get]
func returnHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Complete(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, completeResponse{Success: true, OrderID: order.ID, Status: order.Status})
	}
}
