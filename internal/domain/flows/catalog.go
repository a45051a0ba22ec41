package flows

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pet-wellness/internal/ports/generation"
)

const systemPrompt = "You are a veterinary wellness assistant. Answer only with JSON matching the requested schema. Your advice never replaces a visit to the veterinarian."

var MealPlanFlow = Flow[MealPlanInput, MealPlan]{
	Name:   "meal-plan",
	System: systemPrompt,
	Schema: object(map[string]any{
		"plan":        str(),
		"supplements": str(),
	}, "plan", "supplements"),
	Validate: MealPlanInput.validate,
	Render:   renderWith[MealPlanInput](mealPlanTmpl),
	Check: func(_ MealPlanInput, out *MealPlan) error {
		if err := requireOutput("supplements", out.Supplements); err != nil {
			return err
		}
		days, err := ParseMealPlan(out.Plan)
		if err != nil {
			return err
		}
		out.Days = days
		return nil
	},
}

var SupplementsFlow = Flow[SupplementsInput, SupplementsOutput]{
	Name:   "supplements",
	System: systemPrompt,
	Schema: object(map[string]any{
		"supplements": arrayOf(object(map[string]any{
			"name":        str(),
			"explanation": str(),
		}, "name", "explanation"), 0, 0),
	}, "supplements"),
	Validate: SupplementsInput.validate,
	Render:   renderWith[SupplementsInput](supplementsTmpl),
	Check: func(_ SupplementsInput, out *SupplementsOutput) error {
		if out.Supplements == nil {
			return errors.New("supplements is missing")
		}
		for i, s := range out.Supplements {
			if strings.TrimSpace(s.Name) == "" {
				return fmt.Errorf("supplement %d has no name", i)
			}
		}
		return nil
	},
}

var ActivitiesFlow = Flow[ActivitiesInput, ActivitiesOutput]{
	Name:   "activities",
	System: systemPrompt,
	Schema: object(map[string]any{
		"activities": arrayOf(str(), 3, 4),
	}, "activities"),
	Validate: ActivitiesInput.validate,
	Render:   renderWith[ActivitiesInput](activitiesTmpl),
	Check: func(_ ActivitiesInput, out *ActivitiesOutput) error {
		return countNonEmpty("activities", out.Activities, 3, 4)
	},
}

var CognitiveStimulationFlow = Flow[CognitiveInput, CognitiveOutput]{
	Name:   "cognitive-stimulation",
	System: systemPrompt,
	Schema: object(map[string]any{
		"program": str(),
	}, "program"),
	Validate: CognitiveInput.validate,
	Render:   renderWith[CognitiveInput](cognitiveTmpl),
	Check: func(_ CognitiveInput, out *CognitiveOutput) error {
		return requireOutput("program", out.Program)
	},
}

var NutritionAnalysisFlow = Flow[NutritionInput, NutritionOutput]{
	Name:   "nutrition-analysis",
	System: systemPrompt,
	Schema: object(map[string]any{
		"analysis": str(),
	}, "analysis"),
	Validate: NutritionInput.validate,
	Render:   renderWith[NutritionInput](nutritionTmpl),
	Check: func(_ NutritionInput, out *NutritionOutput) error {
		return requireOutput("analysis", out.Analysis)
	},
}

var LongevityScoreFlow = Flow[LongevityInput, LongevityOutput]{
	Name:   "longevity-score",
	System: systemPrompt,
	Schema: object(map[string]any{
		"analysis": str(),
	}, "analysis"),
	Validate: LongevityInput.validate,
	Render:   renderWith[LongevityInput](longevityTmpl),
	Check: func(_ LongevityInput, out *LongevityOutput) error {
		return requireOutput("analysis", out.Analysis)
	},
}

var EnrichmentPlanFlow = Flow[EnrichmentInput, EnrichmentOutput]{
	Name:   "enrichment-plan",
	System: systemPrompt + " Write the answer in Spanish.",
	Schema: object(map[string]any{
		"plan": str(),
	}, "plan"),
	Validate: EnrichmentInput.validate,
	Render:   renderWith[EnrichmentInput](enrichmentTmpl),
	Check: func(_ EnrichmentInput, out *EnrichmentOutput) error {
		out.Plan = strings.TrimSpace(out.Plan)
		if err := requireOutput("plan", out.Plan); err != nil {
			return err
		}
		if !isSingleSentence(out.Plan) {
			return errors.New("plan must be a single sentence")
		}
		return nil
	},
}

var PreventionAdviceFlow = Flow[PreventionInput, PreventionOutput]{
	Name:   "prevention-advice",
	System: systemPrompt,
	Schema: object(map[string]any{
		"advice":      str(),
		"needsAction": boolean(),
	}, "advice", "needsAction"),
	Validate: PreventionInput.validate,
	Render:   renderWith[PreventionInput](preventionTmpl),
	Check: func(in PreventionInput, out *PreventionOutput) error {
		needs, phrase := PreventionRule(in)
		out.NeedsAction = needs

		advice := strings.TrimSpace(out.Advice)
		if err := requireOutput("advice", advice); err != nil {
			return err
		}
		if !strings.Contains(strings.ToLower(advice), strings.ToLower(phrase)) {
			advice = strings.TrimSpace(phrase + " " + advice)
		}
		out.Advice = advice
		return nil
	},
}

var TextFromImageFlow = Flow[TextFromImageInput, TextFromImageOutput]{
	Name:   "text-from-image",
	System: systemPrompt,
	Schema: object(map[string]any{
		"text": str(),
	}, "text"),
	Validate: TextFromImageInput.validate,
	Render:   renderWith[TextFromImageInput](textFromImageTmpl),
	Media: func(in TextFromImageInput) []generation.Media {
		mime, raw, err := decodeImage(in)
		if err != nil {
			return nil
		}
		return []generation.Media{{MIMEType: mime, Data: raw}}
	},
}

var WellnessTipsFlow = Flow[WellnessTipsInput, WellnessTipsOutput]{
	Name:   "wellness-tips",
	System: systemPrompt,
	Schema: object(map[string]any{
		"tips": arrayOf(object(map[string]any{
			"title":       str(),
			"description": str(),
		}, "title", "description"), 4, 6),
	}, "tips"),
	Validate: WellnessTipsInput.validate,
	Render:   renderWith[WellnessTipsInput](wellnessTipsTmpl),
	Check: func(_ WellnessTipsInput, out *WellnessTipsOutput) error {
		if n := len(out.Tips); n < 4 || n > 6 {
			return fmt.Errorf("tips has %d items, want 4-6", n)
		}
		for i, t := range out.Tips {
			if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Description) == "" {
				return fmt.Errorf("tip %d must have title and description", i)
			}
		}
		return nil
	},
}

// PreventionRule: hembra entera => acción + tumores mamarios; esterilizado =>
// sin acción; macho entero => acción + frase de macho.
func PreventionRule(in PreventionInput) (needsAction bool, phrase string) {
	switch {
	case in.Sterilized:
		return false, PhraseSterilized
	case in.Sex == SexFemale:
		return true, PhraseFemaleUnsterilized
	default:
		return true, PhraseMaleUnsterilized
	}
}

func countNonEmpty(field string, items []string, min, max int) error {
	if n := len(items); n < min || n > max {
		return fmt.Errorf("%s has %d items, want %d-%d", field, n, min, max)
	}
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			return fmt.Errorf("%s item %d is empty", field, i)
		}
	}
	return nil
}

func requireOutput(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is missing", field)
	}
	return nil
}

// un terminador seguido de más texto => más de una oración
var sentenceBreak = regexp.MustCompile(`[.!?]\s+\S`)

func isSingleSentence(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "\n\r") {
		return false
	}
	return !sentenceBreak.MatchString(s)
}
