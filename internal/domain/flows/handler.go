package flows

import (
	"io"
	"net/http"

	"pet-wellness/internal/domain/gating"
	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/domain/session"
	"pet-wellness/internal/platform/apperr"
	"pet-wellness/internal/platform/logger"
	"pet-wellness/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes deja margen para la imagen en base64 de text-from-image.
const maxBodyBytes = MaxImageBytes*4/3 + 64<<10

type Deps struct {
	Dispatcher *Dispatcher
	Registry   *Registry
	Sessions   *session.Manager
	Profiles   *profiles.Store
	Logger     logger.Logger
}

func RegisterRoutes(r chi.Router, deps Deps) {
	if deps.Registry == nil {
		deps.Registry = DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	r.Route("/flows", func(fr chi.Router) {
		fr.Get("/", listFlowsHandler(deps))
		fr.Post("/{flowID}", runFlowHandler(deps))
	})
}

type flowInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Restricted  bool   `json:"restricted"`
	Allowed     bool   `json:"allowed"`
}

// listFlowsHandler godoc
// @Summary Catálogo de flows
// @Description Lista los flows disponibles e indica si el tier actual puede usarlos.
// @Tags flows
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} flowInfo
// @Failure 401 {object} apperr.Envelope
// @Router /flows [get]
func listFlowsHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := deps.Sessions.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}

		items := deps.Registry.List()
		out := make([]flowInfo, 0, len(items))
		for _, e := range items {
			f := gating.Feature(e.ID)
			out = append(out, flowInfo{
				ID:          e.ID,
				Description: e.Description,
				Restricted:  gating.IsRestricted(f),
				Allowed:     gating.IsAllowed(sc, f),
			})
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// runFlowHandler godoc
// @Summary Ejecutar un flow
// @Description Valida el input, hace una llamada al modelo y valida la respuesta. Los campos que no vienen en el body se completan con el perfil actual. Toda falla devuelve `{success:false, error}`.
// @Tags flows
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param flowID path string true "ID del flow (meal-plan, supplements, activities, cognitive-stimulation, nutrition-analysis, longevity-score, enrichment-plan, prevention-advice, text-from-image, wellness-tips)"
// @Param payload body object false "Input del flow"
// @Success 200 {object} apperr.Envelope "success=true y data con el output del flow"
// @Failure 400 {object} apperr.Envelope
// @Failure 401 {object} apperr.Envelope
// @Failure 403 {object} apperr.Envelope
// @Failure 404 {object} apperr.Envelope
// @Failure 502 {object} apperr.Envelope
// @Router /flows/{flowID} [post]
func runFlowHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := deps.Sessions.FromRequest(r)
		if err != nil {
			respond.Error(w, err)
			return
		}

		id := chi.URLParam(r, "flowID")
		ep, ok := deps.Registry.Get(id)
		if !ok {
			respond.Fail(w, http.StatusNotFound, "unknown flow "+id)
			return
		}

		if !gating.IsAllowed(sc, gating.Feature(id)) {
			respond.Fail(w, http.StatusForbidden, "flow "+id+" requires a pro subscription")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			respond.Error(w, &apperr.InvalidInputError{Flow: id, Reason: "request body too large"})
			return
		}

		// sin perfil o con el store caído, el flow corre solo con el body
		var p *profiles.Profile
		if deps.Profiles != nil {
			p, err = deps.Profiles.Load(r.Context(), sc.ID())
			if err != nil {
				deps.Logger.Warn("flow prefill skipped", map[string]any{"flow": id, "user_id": sc.ID(), "error": err})
				p = nil
			}
		}

		res, status := ep.invoke(r.Context(), deps.Dispatcher, body, p)
		respond.JSON(w, status, res)
	}
}
