package flows

type MealPlan struct {
	Plan        string `json:"plan"`
	Supplements string `json:"supplements"`

	// Days lo completa el parser, no el modelo.
	Days []DayPlan `json:"days,omitempty"`
}

type Supplement struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

type SupplementsOutput struct {
	Supplements []Supplement `json:"supplements"`
}

type ActivitiesOutput struct {
	Activities []string `json:"activities"`
}

type CognitiveOutput struct {
	Program string `json:"program"`
}

type NutritionOutput struct {
	Analysis string `json:"analysis"`
}

type LongevityOutput struct {
	Analysis string `json:"analysis"`
}

type EnrichmentOutput struct {
	Plan string `json:"plan"`
}

type PreventionOutput struct {
	Advice      string `json:"advice"`
	NeedsAction bool   `json:"needsAction"`
}

type TextFromImageOutput struct {
	Text string `json:"text"`
}

type Tip struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type WellnessTipsOutput struct {
	Tips []Tip `json:"tips"`
}

// ---- schemas (JSON Schema para el modo JSON del modelo) ----

func str() map[string]any { return map[string]any{"type": "string"} }

func boolean() map[string]any { return map[string]any{"type": "boolean"} }

func arrayOf(items map[string]any, min, max int) map[string]any {
	s := map[string]any{"type": "array", "items": items}
	if min > 0 {
		s["minItems"] = min
	}
	if max > 0 {
		s["maxItems"] = max
	}
	return s
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
