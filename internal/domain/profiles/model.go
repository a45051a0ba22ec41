package profiles

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("profile not found")
)

// Species define las especies soportadas.
// @Enum dog, cat
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

func (s Species) Valid() bool {
	return s == SpeciesDog || s == SpeciesCat
}

// HealthGoal es el objetivo de salud declarado en el onboarding.
// @Enum lose_weight, maintain_weight, improve_joints
type HealthGoal string

const (
	GoalLoseWeight     HealthGoal = "lose_weight"
	GoalMaintainWeight HealthGoal = "maintain_weight"
	GoalImproveJoints  HealthGoal = "improve_joints"
)

func (g HealthGoal) Valid() bool {
	switch g {
	case GoalLoseWeight, GoalMaintainWeight, GoalImproveJoints:
		return true
	}
	return false
}

// Rangos aceptados antes de escribir.
const (
	MinAge    = 0.0
	MaxAge    = 30.0
	MinWeight = 0.1
	MaxWeight = 100.0
)

// Profile es el perfil de la mascota actual de un usuario (uno por sesión).
// Los tags json son el formato del cache local.
type Profile struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"ownerUserId"`

	Name    string  `json:"name"`
	Species Species `json:"species"`
	Breed   string  `json:"breed"`

	Age    float64 `json:"age"`
	Weight float64 `json:"weight"` // kg

	Allergies  string     `json:"allergies,omitempty"`
	HealthGoal HealthGoal `json:"healthGoal,omitempty"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`

	Subscribed bool `json:"isSubscribed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch es un save parcial: nil = no tocar.
type Patch struct {
	Name       *string
	Species    *Species
	Breed      *string
	Age        *float64
	Weight     *float64
	Allergies  *string
	HealthGoal *HealthGoal
	AvatarURL  *string
	Subscribed *bool
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Species == nil && p.Breed == nil && p.Age == nil &&
		p.Weight == nil && p.Allergies == nil && p.HealthGoal == nil &&
		p.AvatarURL == nil && p.Subscribed == nil
}

// Apply devuelve una copia de base con los campos presentes en p.
func (p Patch) Apply(base Profile) Profile {
	out := base
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Species != nil {
		out.Species = *p.Species
	}
	if p.Breed != nil {
		out.Breed = *p.Breed
	}
	if p.Age != nil {
		out.Age = *p.Age
	}
	if p.Weight != nil {
		out.Weight = *p.Weight
	}
	if p.Allergies != nil {
		out.Allergies = *p.Allergies
	}
	if p.HealthGoal != nil {
		out.HealthGoal = *p.HealthGoal
	}
	if p.AvatarURL != nil {
		out.AvatarURL = *p.AvatarURL
	}
	if p.Subscribed != nil {
		out.Subscribed = *p.Subscribed
	}
	return out
}
