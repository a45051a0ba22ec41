package gating

import (
	"net/http"

	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, sessions *session.Manager, redeemer *Redeemer) {
	r.Get("/me/features/{featureID}", featureHandler(sessions))
	r.Post("/me/redeem", redeemHandler(sessions, redeemer))
}

type featureResponse struct {
	Feature    Feature      `json:"feature"`
	Restricted bool         `json:"restricted"`
	Allowed    bool         `json:"allowed"`
	Tier       session.Tier `json:"tier"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Success bool         `json:"success"`
	Tier    session.Tier `json:"tier"`
}

// featureHandler godoc
// @Summary Consultar acceso a una feature
// @Tags gating
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param featureID path string true "ID de la feature (= id del flow)"
// @Success 200 {object} featureResponse
// @Failure 401 {object} apperr.Envelope
// @Router /me/features/{featureID} [get]
func featureHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := sessions.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}

		f := Feature(chi.URLParam(r, "featureID"))
		respond.JSON(w, http.StatusOK, featureResponse{
			Feature:    f,
			Restricted: IsRestricted(f),
			Allowed:    IsAllowed(sc, f),
			Tier:       sc.Tier(),
		})
	}
}

// redeemHandler godoc
// @Summary Canjear código de suscripción
// @Description Compara el código (case-insensitive) con el secreto configurado. Si coincide activa el tier pro; repetir el canje no vuelve a escribir.
// @Tags gating
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body redeemRequest true "Código"
// @Success 200 {object} redeemResponse
// @Failure 400 {object} apperr.Envelope
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/redeem [post]
func redeemHandler(sessions *session.Manager, redeemer *Redeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := sessions.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}

		var req redeemRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, err)
			return
		}

		ok, err := redeemer.Redeem(r.Context(), sc, req.Code)
		if err != nil {
			respond.Error(w, err)
			return
		}

		respond.JSON(w, http.StatusOK, redeemResponse{Success: ok, Tier: sc.Tier()})
	}
}
