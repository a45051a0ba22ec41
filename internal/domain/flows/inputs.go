package flows

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"pet-wellness/internal/domain/profiles"
)

// Sex del animal para prevention-advice.
// @Enum male, female
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// MaxImageBytes es el tope del adjunto de text-from-image ya decodificado.
const MaxImageBytes = 8 << 20

type MealPlanInput struct {
	Species     profiles.Species    `json:"species"`
	Age         float64             `json:"age"`
	Breed       string              `json:"breed"`
	Weight      float64             `json:"weight"`
	Allergies   string              `json:"allergies"`
	HealthGoal  profiles.HealthGoal `json:"healthGoal"`
	Preferences []string            `json:"preferences"`
}

type SupplementsInput struct {
	Species     profiles.Species `json:"species"`
	Age         float64          `json:"age"`
	Breed       string           `json:"breed"`
	Weight      float64          `json:"weight"`
	Allergies   string           `json:"allergies"`
	HealthNeeds string           `json:"healthNeeds"`
}

type ActivitiesInput struct {
	Species    profiles.Species    `json:"species"`
	Breed      string              `json:"breed"`
	Age        float64             `json:"age"`
	HealthGoal profiles.HealthGoal `json:"healthGoal"`
}

type CognitiveInput struct {
	Species profiles.Species `json:"species"`
	Age     float64          `json:"age"`
	Signs   []string         `json:"signs"`
}

type NutritionInput struct {
	Ingredients string           `json:"ingredients"`
	Age         float64          `json:"age"`
	Species     profiles.Species `json:"species"`
}

type LongevityInput struct {
	Weight float64 `json:"weight"`
	Breed  string  `json:"breed"`
}

type EnrichmentInput struct {
	Name    string           `json:"name"`
	Species profiles.Species `json:"species"`
	Breed   string           `json:"breed"`
	Age     float64          `json:"age"`
	Housing string           `json:"housing"`
}

type PreventionInput struct {
	Species    profiles.Species `json:"species"`
	Sex        Sex              `json:"sex"`
	Age        float64          `json:"age"`
	Sterilized bool             `json:"sterilized"`
}

type TextFromImageInput struct {
	// Image: base64 crudo o data URI (data:image/png;base64,...).
	Image    string `json:"image"`
	MIMEType string `json:"mimeType"`
}

type WellnessTipsInput struct {
	Species profiles.Species `json:"species"`
}

// ---- validaciones compartidas ----

func checkSpecies(s profiles.Species) error {
	if !s.Valid() {
		return errors.New("species must be one of dog, cat")
	}
	return nil
}

func checkAge(a float64) error {
	if err := (profiles.Patch{Age: &a}).Validate(); err != nil {
		return fmt.Errorf("age must be between %g and %g", profiles.MinAge, profiles.MaxAge)
	}
	return nil
}

func checkWeight(w float64) error {
	if err := (profiles.Patch{Weight: &w}).Validate(); err != nil {
		return fmt.Errorf("weight must be between %g and %g", profiles.MinWeight, profiles.MaxWeight)
	}
	return nil
}

func checkGoal(g profiles.HealthGoal) error {
	if g != "" && !g.Valid() {
		return errors.New("healthGoal must be one of lose_weight, maintain_weight, improve_joints")
	}
	return nil
}

func checkText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func checkList(field string, items []string, min, max int) error {
	n := 0
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			return fmt.Errorf("%s must not contain empty items", field)
		}
		n++
	}
	if n < min {
		return fmt.Errorf("%s requires at least %d item(s)", field, min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%s allows at most %d items", field, max)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (in MealPlanInput) validate() error {
	return firstErr(
		checkSpecies(in.Species),
		checkAge(in.Age),
		checkWeight(in.Weight),
		checkGoal(in.HealthGoal),
		checkList("preferences", in.Preferences, 0, 20),
	)
}

func (in SupplementsInput) validate() error {
	return firstErr(
		checkSpecies(in.Species),
		checkAge(in.Age),
		checkWeight(in.Weight),
	)
}

func (in ActivitiesInput) validate() error {
	return firstErr(
		checkSpecies(in.Species),
		checkAge(in.Age),
		checkGoal(in.HealthGoal),
	)
}

func (in CognitiveInput) validate() error {
	return firstErr(
		checkSpecies(in.Species),
		checkAge(in.Age),
		checkList("signs", in.Signs, 1, 20),
	)
}

func (in NutritionInput) validate() error {
	return firstErr(
		checkText("ingredients", in.Ingredients),
		checkAge(in.Age),
		checkSpecies(in.Species),
	)
}

func (in LongevityInput) validate() error {
	return firstErr(
		checkWeight(in.Weight),
		checkText("breed", in.Breed),
	)
}

func (in EnrichmentInput) validate() error {
	return firstErr(
		checkText("name", in.Name),
		checkSpecies(in.Species),
		checkAge(in.Age),
		checkText("housing", in.Housing),
	)
}

func (in PreventionInput) validate() error {
	if in.Sex != SexMale && in.Sex != SexFemale {
		return errors.New("sex must be one of male, female")
	}
	if in.Species != "" {
		if err := checkSpecies(in.Species); err != nil {
			return err
		}
	}
	return checkAge(in.Age)
}

func (in TextFromImageInput) validate() error {
	_, _, err := decodeImage(in)
	return err
}

func (in WellnessTipsInput) validate() error {
	return checkSpecies(in.Species)
}

// decodeImage acepta base64 crudo (con mimeType) o data URI. Si vienen los dos,
// manda el tipo del data URI.
func decodeImage(in TextFromImageInput) (string, []byte, error) {
	data := strings.TrimSpace(in.Image)
	mime := strings.ToLower(strings.TrimSpace(in.MIMEType))
	if data == "" {
		return "", nil, errors.New("image is required")
	}

	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 {
			return "", nil, errors.New("image data URI is malformed")
		}
		meta := strings.Split(data[len("data:"):comma], ";")
		isBase64 := false
		for _, m := range meta[1:] {
			if strings.EqualFold(strings.TrimSpace(m), "base64") {
				isBase64 = true
			}
		}
		if !isBase64 {
			return "", nil, errors.New("image data URI must be base64 encoded")
		}
		if t := strings.ToLower(strings.TrimSpace(meta[0])); t != "" {
			mime = t
		}
		data = data[comma+1:]
	}

	if mime == "" {
		return "", nil, errors.New("mimeType is required")
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, errors.New("mimeType must be an image type")
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
	}
	if err != nil {
		return "", nil, errors.New("image must be base64 encoded")
	}
	if len(raw) == 0 {
		return "", nil, errors.New("image is empty")
	}
	if len(raw) > MaxImageBytes {
		return "", nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return mime, raw, nil
}
