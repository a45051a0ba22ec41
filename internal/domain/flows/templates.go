package flows

import (
	"strings"
	"text/template"

	"pet-wellness/internal/domain/profiles"
)

// Frases fijas de prevention-advice. Se renderizan tal cual en el prompt y se
// exigen en la respuesta.
const (
	PhraseFemaleUnsterilized = "Sterilizing her significantly reduces the risk of mammary tumors, especially before the first heat."
	PhraseMaleUnsterilized   = "Neutering him prevents testicular tumors and lowers the risk of prostate problems."
	PhraseSterilized         = "Your pet is already sterilized, so no sterilization action is needed."
)

var funcs = template.FuncMap{
	"goal": func(g profiles.HealthGoal) string {
		switch g {
		case profiles.GoalLoseWeight:
			return "lose weight"
		case profiles.GoalMaintainWeight:
			return "maintain a healthy weight"
		case profiles.GoalImproveJoints:
			return "improve joint health"
		}
		return string(g)
	},
	"femalePhrase":     func() string { return PhraseFemaleUnsterilized },
	"malePhrase":       func() string { return PhraseMaleUnsterilized },
	"sterilizedPhrase": func() string { return PhraseSterilized },
	"trim":             strings.TrimSpace,
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

// renderWith devuelve un Render puro sobre t.
func renderWith[In any](t *template.Template) func(In) (string, error) {
	return func(in In) (string, error) {
		var b strings.Builder
		if err := t.Execute(&b, in); err != nil {
			return "", err
		}
		return strings.TrimSpace(b.String()), nil
	}
}

var (
	mealPlanTmpl = mustTemplate("meal-plan", `
Create a 7-day homemade meal plan for a {{.Age}}-year-old {{with trim .Breed}}{{.}} {{end}}{{.Species}} weighing {{.Weight}} kg.
{{- if trim .Allergies}}
The pet is allergic to: {{trim .Allergies}}. Never include these ingredients.
{{- end}}
{{- if .HealthGoal}}
The health goal is to {{goal .HealthGoal}}.
{{- end}}
{{- if .Preferences}}
Prefer these ingredients when possible:
{{- range .Preferences}}
- {{trim .}}
{{- end}}
{{- end}}

Write "plan" as seven sections titled "Day 1" through "Day 7". Every section must contain one line starting with "Breakfast:" and one line starting with "Dinner:".
Write "supplements" as a short paragraph with supplement suggestions for this plan.`)

	supplementsTmpl = mustTemplate("supplements", `
Suggest dietary supplements for a {{.Age}}-year-old {{with trim .Breed}}{{.}} {{end}}{{.Species}} weighing {{.Weight}} kg.
{{- if trim .Allergies}}
Known allergies: {{trim .Allergies}}.
{{- end}}
{{- if trim .HealthNeeds}}
Health needs: {{trim .HealthNeeds}}.
{{- end}}
For each supplement give its name and a one-sentence explanation of why it helps.`)

	activitiesTmpl = mustTemplate("activities", `
Suggest 3 or 4 short daily activities for a {{.Age}}-year-old {{with trim .Breed}}{{.}} {{end}}{{.Species}}.
{{- if .HealthGoal}}
The activities should help the pet {{goal .HealthGoal}}.
{{- end}}
Each activity must be a single short sentence.`)

	cognitiveTmpl = mustTemplate("cognitive-stimulation", `
Design a cognitive stimulation program for a {{.Age}}-year-old {{.Species}}.
The owner has observed these signs:
{{- range .Signs}}
- {{trim .}}
{{- end}}
Return the whole program as one text with the exercises and how often to do them.`)

	nutritionTmpl = mustTemplate("nutrition-analysis", `
Analyze this ingredient list of a food for a {{.Age}}-year-old {{.Species}}:
{{trim .Ingredients}}

Point out beneficial ingredients, questionable ones and whether it suits the pet's age.`)

	longevityTmpl = mustTemplate("longevity-score", `
Estimate the longevity outlook of a {{trim .Breed}} that currently weighs {{.Weight}} kg.
Compare the weight with the usual range for the breed and explain how it affects life expectancy.`)

	enrichmentTmpl = mustTemplate("enrichment-plan", `
{{.Name}} is a {{.Age}}-year-old {{with trim .Breed}}{{.}} {{end}}{{.Species}} living in: {{trim .Housing}}.
Propose an environmental enrichment plan in exactly one sentence.
Respond in Spanish.`)

	preventionTmpl = mustTemplate("prevention-advice", `
Give preventive health advice for a {{.Age}}-year-old {{.Sex}}{{with .Species}} {{.}}{{end}}.
{{- if .Sterilized}}
The pet is sterilized. Set "needsAction" to false and start "advice" with: "{{sterilizedPhrase}}"
{{- else if eq .Sex "female"}}
The pet is an unsterilized female. Set "needsAction" to true and start "advice" with: "{{femalePhrase}}"
{{- else}}
The pet is an unsterilized male. Set "needsAction" to true and start "advice" with: "{{malePhrase}}"
{{- end}}`)

	textFromImageTmpl = mustTemplate("text-from-image", `
Extract all legible text from the attached image. Return it verbatim in "text". If there is no text, return an empty string.`)

	wellnessTipsTmpl = mustTemplate("wellness-tips", `
Give between 4 and 6 practical wellness tips for a {{.Species}} owner.
Each tip has a short title and a one or two sentence description.`)
)
