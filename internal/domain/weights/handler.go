package weights

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-wellness/internal/middleware"
	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me/weights", func(wr chi.Router) {
		wr.Get("/", listWeightsHandler(svc))
		wr.Post("/", recordWeightHandler(svc))
	})
}

type recordWeightRequest struct {
	Weight     float64 `json:"weight"`
	RecordedAt string  `json:"recordedAt"` // RFC3339 opcional
}

// recordWeightHandler godoc
// @Summary Registrar peso
// @Description Agrega una medición al historial y actualiza el peso actual del perfil (salvo mediciones retroactivas). Rango 0.1-100 kg.
// @Tags weights
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body recordWeightRequest true "Medición"
// @Success 201 {object} Entry
// @Failure 400 {object} apperr.Envelope
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/weights [post]
func recordWeightHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		var req recordWeightRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, err)
			return
		}

		var at time.Time
		if strings.TrimSpace(req.RecordedAt) != "" {
			t, err := time.Parse(time.RFC3339, req.RecordedAt)
			if err != nil {
				respond.Error(w, apperr.Validation("recordedAt", "must be RFC3339"))
				return
			}
			at = t
		}

		e, err := svc.Record(r.Context(), claims.UserID, RecordInput{Weight: req.Weight, RecordedAt: at})
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusCreated, e)
	}
}

// listWeightsHandler godoc
// @Summary Historial de peso
// @Tags weights
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param limit query int false "Máximo de entradas (default 30, máx 365)"
// @Success 200 {array} Entry
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/weights [get]
func listWeightsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				respond.Error(w, apperr.Validation("limit", "must be an integer"))
				return
			}
			limit = n
		}

		items, err := svc.List(r.Context(), claims.UserID, limit)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, items)
	}
}
