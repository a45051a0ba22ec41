// Package gating decide qué features puede usar una sesión según su tier.
package gating

import (
	"pet-wellness/internal/domain/session"
)

// Feature identifica una capacidad gateada. Coincide con el id del flow.
type Feature string

const (
	FeatureMealPlan             Feature = "meal-plan"
	FeatureSupplements          Feature = "supplements"
	FeatureActivities           Feature = "activities"
	FeatureCognitiveStimulation Feature = "cognitive-stimulation"
	FeatureNutritionAnalysis    Feature = "nutrition-analysis"
	FeatureLongevityScore       Feature = "longevity-score"
	FeatureEnrichmentPlan       Feature = "enrichment-plan"
	FeaturePreventionAdvice     Feature = "prevention-advice"
	FeatureTextFromImage        Feature = "text-from-image"
	FeatureWellnessTips         Feature = "wellness-tips"
)

// restricted: solo tier pro.
var restricted = map[Feature]bool{
	FeatureMealPlan:             true,
	FeatureSupplements:          true,
	FeatureCognitiveStimulation: true,
	FeatureLongevityScore:       true,
	FeatureEnrichmentPlan:       true,
}

// Subject es lo mínimo que la política necesita de una sesión.
type Subject interface {
	Tier() session.Tier
}

// IsRestricted indica si la feature requiere tier pro. Features desconocidas
// no están restringidas.
func IsRestricted(f Feature) bool {
	return restricted[f]
}

// IsAllowed es pura: sin IO ni estado.
func IsAllowed(s Subject, f Feature) bool {
	if !IsRestricted(f) {
		return true
	}
	return s != nil && s.Tier() == session.TierPro
}
