package session

import (
	"net/http"

	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, m *Manager) {
	r.Get("/me/session", getSessionHandler(m))
	r.Delete("/me/session", logoutHandler(m))
}

// getSessionHandler godoc
// @Summary Sesión actual
// @Description Abre (o reutiliza) la sesión del usuario autenticado. Si el registro de usuario no existe se crea con tier free.
// @Tags session
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param X-Debug-User-Email header string false "Solo en modo dev, email del usuario"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} View
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/session [get]
func getSessionHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := m.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, sc.View())
	}
}

// logoutHandler godoc
// @Summary Cerrar sesión
// @Tags session
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 204
// @Failure 401 {object} apperr.Envelope
// @Router /me/session [delete]
func logoutHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := m.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}
		m.Logout(sc.ID())
		w.WriteHeader(http.StatusNoContent)
	}
}
