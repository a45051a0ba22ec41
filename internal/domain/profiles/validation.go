package profiles

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"pet-wellness/internal/platform/apperr"
)

// Normalize recorta espacios de los campos de texto presentes.
func (p Patch) Normalize() Patch {
	out := p
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	out.Name = trim(p.Name)
	out.Breed = trim(p.Breed)
	out.Allergies = trim(p.Allergies)
	out.AvatarURL = trim(p.AvatarURL)
	if p.Species != nil {
		s := Species(strings.ToLower(strings.TrimSpace(string(*p.Species))))
		out.Species = &s
	}
	if p.HealthGoal != nil {
		g := HealthGoal(strings.ToLower(strings.TrimSpace(string(*p.HealthGoal))))
		out.HealthGoal = &g
	}
	return out
}

// Validate chequea solo los campos presentes (merge semantics).
func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if p.Species != nil && !p.Species.Valid() {
		return apperr.Validation("species", "must be one of dog, cat")
	}
	if p.Age != nil {
		if err := checkRange("age", *p.Age, MinAge, MaxAge); err != nil {
			return err
		}
	}
	if p.Weight != nil {
		if err := checkRange("weight", *p.Weight, MinWeight, MaxWeight); err != nil {
			return err
		}
	}
	if p.HealthGoal != nil && *p.HealthGoal != "" && !p.HealthGoal.Valid() {
		return apperr.Validation("healthGoal", "must be one of lose_weight, maintain_weight, improve_joints")
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		u, err := url.ParseRequestURI(*p.AvatarURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperr.Validation("avatarUrl", "must be an absolute URI")
		}
	}
	return nil
}

// validateForCreate: el primer save (onboarding) necesita identidad mínima.
func validateForCreate(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("name", "is required")
	}
	if !p.Species.Valid() {
		return apperr.Validation("species", "is required")
	}
	return nil
}

func checkRange(field string, v, min, max float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < min || v > max {
		return apperr.Validation(field, fmt.Sprintf("must be between %g and %g", min, max))
	}
	return nil
}
