package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/platform/apperr"
)

// Endpoint es un flow con el tipo borrado para exponerlo por HTTP.
type Endpoint struct {
	ID          string
	Description string

	invoke func(ctx context.Context, d *Dispatcher, body []byte, p *profiles.Profile) (any, int)
}

// endpoint arma el Endpoint de un flow. prefill toma los campos del perfil;
// el body del request los pisa solo para las claves que trae.
func endpoint[In, Out any](f Flow[In, Out], description string, prefill func(profiles.Profile) In) Endpoint {
	return Endpoint{
		ID:          f.Name,
		Description: description,
		invoke: func(ctx context.Context, d *Dispatcher, body []byte, p *profiles.Profile) (any, int) {
			var in In
			if p != nil && prefill != nil {
				in = prefill(*p)
			}
			if len(bytes.TrimSpace(body)) > 0 {
				if err := json.Unmarshal(body, &in); err != nil {
					res := failure[Out](&apperr.InvalidInputError{Flow: f.Name, Reason: "invalid json"})
					return res, http.StatusBadRequest
				}
			}

			res := Run(ctx, d, f, in)
			if res.Success {
				return res, http.StatusOK
			}
			return res, apperr.HTTPStatus(res.err)
		},
	}
}

// Registry indexa los endpoints por id.
type Registry struct {
	byID map[string]Endpoint
}

func NewRegistry(endpoints ...Endpoint) *Registry {
	r := &Registry{byID: make(map[string]Endpoint, len(endpoints))}
	for _, e := range endpoints {
		r.byID[e.ID] = e
	}
	return r
}

func (r *Registry) Get(id string) (Endpoint, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// List devuelve los endpoints ordenados por id.
func (r *Registry) List() []Endpoint {
	out := make([]Endpoint, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultRegistry registra todos los flows con su prefill desde el perfil.
func DefaultRegistry() *Registry {
	return NewRegistry(
		endpoint(MealPlanFlow, "Plan de comidas de 7 días con desayuno y cena",
			func(p profiles.Profile) MealPlanInput {
				return MealPlanInput{Species: p.Species, Age: p.Age, Breed: p.Breed, Weight: p.Weight, Allergies: p.Allergies, HealthGoal: p.HealthGoal}
			}),
		endpoint(SupplementsFlow, "Sugerencias de suplementos",
			func(p profiles.Profile) SupplementsInput {
				return SupplementsInput{Species: p.Species, Age: p.Age, Breed: p.Breed, Weight: p.Weight, Allergies: p.Allergies}
			}),
		endpoint(ActivitiesFlow, "3 a 4 actividades diarias",
			func(p profiles.Profile) ActivitiesInput {
				return ActivitiesInput{Species: p.Species, Breed: p.Breed, Age: p.Age, HealthGoal: p.HealthGoal}
			}),
		endpoint(CognitiveStimulationFlow, "Programa de estimulación cognitiva",
			func(p profiles.Profile) CognitiveInput {
				return CognitiveInput{Species: p.Species, Age: p.Age}
			}),
		endpoint(NutritionAnalysisFlow, "Análisis de ingredientes de un alimento",
			func(p profiles.Profile) NutritionInput {
				return NutritionInput{Species: p.Species, Age: p.Age}
			}),
		endpoint(LongevityScoreFlow, "Análisis de longevidad por peso y raza",
			func(p profiles.Profile) LongevityInput {
				return LongevityInput{Weight: p.Weight, Breed: p.Breed}
			}),
		endpoint(EnrichmentPlanFlow, "Plan de enriquecimiento ambiental (una oración, en español)",
			func(p profiles.Profile) EnrichmentInput {
				return EnrichmentInput{Name: p.Name, Species: p.Species, Breed: p.Breed, Age: p.Age}
			}),
		endpoint(PreventionAdviceFlow, "Consejo preventivo según sexo y esterilización",
			func(p profiles.Profile) PreventionInput {
				return PreventionInput{Species: p.Species, Age: p.Age}
			}),
		endpoint(TextFromImageFlow, "Extraer texto de una imagen", nil),
		endpoint(WellnessTipsFlow, "4 a 6 consejos de bienestar",
			func(p profiles.Profile) WellnessTipsInput {
				return WellnessTipsInput{Species: p.Species}
			}),
	)
}
