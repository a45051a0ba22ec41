package profiles

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pet-wellness/internal/middleware"
	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/me/profile", func(pr chi.Router) {
		pr.Get("/", getProfileHandler(store))
		pr.Patch("/", saveProfileHandler(store))
		pr.Delete("/", clearProfileHandler(store))

		// SSE: un evento por cambio autoritativo hasta que el cliente corta.
		pr.Get("/stream", streamProfileHandler(store))
	})
}

type profileResponse struct {
	ID          string     `json:"id"`
	OwnerUserID string     `json:"ownerUserId"`
	Name        string     `json:"name"`
	Species     Species    `json:"species"`
	Breed       string     `json:"breed"`
	Age         float64    `json:"age"`
	Weight      float64    `json:"weight"`
	Allergies   string     `json:"allergies"`
	HealthGoal  HealthGoal `json:"healthGoal"`
	AvatarURL   string     `json:"avatarUrl"`
	Subscribed  bool       `json:"isSubscribed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// El flag de suscripción no se acepta por acá: solo lo cambian redeem/pagos.
type saveProfileRequest struct {
	Name       *string  `json:"name"`
	Species    *string  `json:"species"`
	Breed      *string  `json:"breed"`
	Age        *float64 `json:"age"`
	Weight     *float64 `json:"weight"`
	Allergies  *string  `json:"allergies"`
	HealthGoal *string  `json:"healthGoal"`
	AvatarURL  *string  `json:"avatarUrl"`
}

func (req saveProfileRequest) toPatch() Patch {
	p := Patch{
		Name:      req.Name,
		Breed:     req.Breed,
		Age:       req.Age,
		Weight:    req.Weight,
		Allergies: req.Allergies,
		AvatarURL: req.AvatarURL,
	}
	if req.Species != nil {
		s := Species(*req.Species)
		p.Species = &s
	}
	if req.HealthGoal != nil {
		g := HealthGoal(*req.HealthGoal)
		p.HealthGoal = &g
	}
	return p
}

type streamEvent struct {
	Op      string           `json:"op"`
	Profile *profileResponse `json:"profile"`
}

// getProfileHandler godoc
// @Summary Perfil de la mascota actual
// @Description Devuelve el perfil del usuario autenticado. Por defecto sirve la copia en cache y reconcilia en background; con `fresh=true` lee el store autoritativo.
// @Tags profile
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param fresh query bool false "Lectura autoritativa"
// @Success 200 {object} profileResponse
// @Failure 401 {object} apperr.Envelope
// @Failure 404 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/profile [get]
func getProfileHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		load := store.Load
		if r.URL.Query().Get("fresh") == "true" {
			load = store.Fetch
		}

		p, err := load(r.Context(), claims.UserID)
		if err != nil {
			respond.Error(w, err)
			return
		}
		if p == nil {
			respond.Fail(w, http.StatusNotFound, ErrNotFound.Error())
			return
		}

		respond.JSON(w, http.StatusOK, toProfileResponse(*p))
	}
}

// saveProfileHandler godoc
// @Summary Guardar perfil (merge)
// @Description Crea el perfil en el primer save (name y species requeridos) o hace merge de los campos enviados. Rangos: age 0-30, weight 0.1-100.
// @Tags profile
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body saveProfileRequest true "Campos a guardar"
// @Success 200 {object} profileResponse
// @Failure 400 {object} apperr.Envelope
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/profile [patch]
func saveProfileHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		var req saveProfileRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, err)
			return
		}

		p, err := store.Save(r.Context(), claims.UserID, req.toPatch())
		if err != nil {
			respond.Error(w, err)
			return
		}

		respond.JSON(w, http.StatusOK, toProfileResponse(*p))
	}
}

// clearProfileHandler godoc
// @Summary Borrar perfil
// @Tags profile
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 204
// @Failure 401 {object} apperr.Envelope
// @Failure 503 {object} apperr.Envelope
// @Router /me/profile [delete]
func clearProfileHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		if err := store.Clear(r.Context(), claims.UserID); err != nil {
			respond.Error(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// streamProfileHandler godoc
// @Summary Stream de cambios del perfil (SSE)
// @Description Emite un evento `snapshot` con el estado actual y luego un evento por cada cambio autoritativo. La suscripción se cancela al cortar la conexión.
// @Tags profile
// @Produce text/event-stream
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} streamEvent
// @Failure 401 {object} apperr.Envelope
// @Router /me/profile/stream [get]
func streamProfileHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			respond.Unauthorized(w)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			respond.Fail(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		ctx := r.Context()
		changes := make(chan Change, 16)

		cancel, err := store.Subscribe(ctx, claims.UserID, func(c Change) {
			select {
			case changes <- c:
			default:
				// cliente lento: se descarta, el próximo evento trae el documento completo
			}
		})
		if err != nil {
			respond.Error(w, err)
			return
		}
		defer cancel()

		current, err := store.Load(ctx, claims.UserID)
		if err != nil {
			respond.Error(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeEvent(w, "snapshot", current)
		flusher.Flush()

		for {
			select {
			case <-ctx.Done():
				return
			case c := <-changes:
				writeEvent(w, string(c.Op), c.Profile)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, op string, p *Profile) {
	ev := streamEvent{Op: op}
	if p != nil {
		resp := toProfileResponse(*p)
		ev.Profile = &resp
	}
	b, _ := json.Marshal(ev)
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", op, b)
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Age:         p.Age,
		Weight:      p.Weight,
		Allergies:   p.Allergies,
		HealthGoal:  p.HealthGoal,
		AvatarURL:   p.AvatarURL,
		Subscribed:  p.Subscribed,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
