package flows

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"pet-wellness/internal/domain/profiles"
	"pet-wellness/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreventionRule_ThreeWayBranch(t *testing.T) {
	needs, phrase := PreventionRule(PreventionInput{Sex: SexFemale, Age: 2})
	assert.True(t, needs)
	assert.Contains(t, phrase, "mammary tumors")

	needs, phrase = PreventionRule(PreventionInput{Sex: SexFemale, Age: 2, Sterilized: true})
	assert.False(t, needs)
	assert.Equal(t, PhraseSterilized, phrase)

	needs, phrase = PreventionRule(PreventionInput{Sex: SexMale, Age: 2, Sterilized: true})
	assert.False(t, needs)
	assert.Equal(t, PhraseSterilized, phrase)

	needs, phrase = PreventionRule(PreventionInput{Sex: SexMale, Age: 2})
	assert.True(t, needs)
	assert.Equal(t, PhraseMaleUnsterilized, phrase)
}

func TestPreventionRender_BranchesVerbatim(t *testing.T) {
	render := PreventionAdviceFlow.Render

	female, err := render(PreventionInput{Sex: SexFemale, Age: 3})
	require.NoError(t, err)
	assert.Contains(t, female, PhraseFemaleUnsterilized)
	assert.NotContains(t, female, PhraseMaleUnsterilized)

	male, err := render(PreventionInput{Sex: SexMale, Age: 3, Species: profiles.SpeciesCat})
	require.NoError(t, err)
	assert.Contains(t, male, PhraseMaleUnsterilized)
	assert.Contains(t, male, "male cat")

	sterilized, err := render(PreventionInput{Sex: SexFemale, Age: 3, Sterilized: true})
	require.NoError(t, err)
	assert.Contains(t, sterilized, PhraseSterilized)
	assert.NotContains(t, sterilized, PhraseFemaleUnsterilized)
}

func TestPreventionCheck_EnforcesRuleOnResult(t *testing.T) {
	// el modelo contradice la regla: se corrige needsAction y se antepone la frase
	g := &stubGen{reply: `{"advice":"Keep vaccines up to date.","needsAction":false}`}
	res := Run(context.Background(), newTestDispatcher(g), PreventionAdviceFlow, PreventionInput{Sex: SexFemale, Age: 1})

	require.True(t, res.Success, res.Error)
	assert.True(t, res.Data.NeedsAction)
	assert.True(t, strings.HasPrefix(res.Data.Advice, PhraseFemaleUnsterilized))
	assert.Contains(t, res.Data.Advice, "Keep vaccines up to date.")

	g = &stubGen{reply: fmt.Sprintf(`{"advice":%q,"needsAction":true}`, PhraseSterilized+" Walk daily.")}
	res = Run(context.Background(), newTestDispatcher(g), PreventionAdviceFlow, PreventionInput{Sex: SexMale, Age: 5, Sterilized: true})

	require.True(t, res.Success, res.Error)
	assert.False(t, res.Data.NeedsAction)
	assert.Equal(t, PhraseSterilized+" Walk daily.", res.Data.Advice)
}

func TestPreventionValidate(t *testing.T) {
	res := Run(context.Background(), newTestDispatcher(&stubGen{}), PreventionAdviceFlow, PreventionInput{Sex: "other", Age: 1})
	assert.True(t, apperr.IsInvalidInput(res.Err()))
}

func tipsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"title":"t%d","description":"d%d"}`, i, i)
	}
	return `{"tips":[` + strings.Join(parts, ",") + `]}`
}

func TestWellnessTips_CountEnforced(t *testing.T) {
	for n := 0; n <= 8; n++ {
		g := &stubGen{reply: tipsJSON(n)}
		res := Run(context.Background(), newTestDispatcher(g), WellnessTipsFlow, WellnessTipsInput{Species: profiles.SpeciesDog})
		if n >= 4 && n <= 6 {
			assert.True(t, res.Success, "n=%d: %s", n, res.Error)
		} else {
			assert.False(t, res.Success, "n=%d", n)
			assert.True(t, apperr.IsOutputValidation(res.Err()))
		}
	}
}

func TestActivities_CountEnforced(t *testing.T) {
	in := ActivitiesInput{Species: profiles.SpeciesDog, Breed: "Beagle", Age: 4}

	ok := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"activities":["a","b","c"]}`}), ActivitiesFlow, in)
	assert.True(t, ok.Success)

	tooFew := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"activities":["a","b"]}`}), ActivitiesFlow, in)
	assert.False(t, tooFew.Success)

	tooMany := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"activities":["a","b","c","d","e"]}`}), ActivitiesFlow, in)
	assert.False(t, tooMany.Success)
}

func TestCognitive_MissingOutputIsFailure(t *testing.T) {
	in := CognitiveInput{Species: profiles.SpeciesCat, Age: 12, Signs: []string{"desorientación"}}

	res := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{}`}), CognitiveStimulationFlow, in)
	assert.False(t, res.Success)
	assert.True(t, apperr.IsOutputValidation(res.Err()))

	empty := Run(context.Background(), newTestDispatcher(&stubGen{}), CognitiveStimulationFlow, CognitiveInput{Species: profiles.SpeciesCat, Age: 12})
	assert.True(t, apperr.IsInvalidInput(empty.Err()))
}

func TestEnrichment_SingleSentence(t *testing.T) {
	in := EnrichmentInput{Name: "Milo", Species: profiles.SpeciesCat, Age: 3, Housing: "departamento"}

	ok := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"plan":"Instala repisas a 1.5 m de altura y rota sus juguetes cada semana."}`}), EnrichmentPlanFlow, in)
	assert.True(t, ok.Success, ok.Error)

	two := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"plan":"Instala repisas. Rota juguetes."}`}), EnrichmentPlanFlow, in)
	assert.False(t, two.Success)

	g := &stubGen{reply: `{"plan":"x."}`}
	Run(context.Background(), newTestDispatcher(g), EnrichmentPlanFlow, in)
	require.Len(t, g.calls, 1)
	assert.Contains(t, g.calls[0].Prompt, "Spanish")
	assert.Contains(t, g.calls[0].System, "Spanish")
}

func TestMealPlan_RenderConditionalBlocks(t *testing.T) {
	render := MealPlanFlow.Render

	bare, err := render(MealPlanInput{Species: profiles.SpeciesDog, Age: 4, Weight: 12})
	require.NoError(t, err)
	assert.NotContains(t, bare, "allergic")
	assert.NotContains(t, bare, "Prefer these ingredients")

	full, err := render(MealPlanInput{
		Species:     profiles.SpeciesDog,
		Age:         4,
		Breed:       "Beagle",
		Weight:      12.5,
		Allergies:   "chicken",
		HealthGoal:  profiles.GoalLoseWeight,
		Preferences: []string{"salmon", "pumpkin"},
	})
	require.NoError(t, err)
	assert.Contains(t, full, "4-year-old Beagle dog weighing 12.5 kg")
	assert.Contains(t, full, "allergic to: chicken")
	assert.Contains(t, full, "lose weight")
	assert.Contains(t, full, "- salmon\n- pumpkin")

	again, err := render(MealPlanInput{
		Species:     profiles.SpeciesDog,
		Age:         4,
		Breed:       "Beagle",
		Weight:      12.5,
		Allergies:   "chicken",
		HealthGoal:  profiles.GoalLoseWeight,
		Preferences: []string{"salmon", "pumpkin"},
	})
	require.NoError(t, err)
	assert.Equal(t, full, again)
}

func TestMealPlan_OutputParsed(t *testing.T) {
	plan := weekPlan(func(d int) string { return fmt.Sprintf("Day %d\nBreakfast: a\nDinner: b", d) })
	g := &stubGen{reply: fmt.Sprintf(`{"plan":%q,"supplements":"omega 3"}`, plan)}

	res := Run(context.Background(), newTestDispatcher(g), MealPlanFlow, MealPlanInput{Species: profiles.SpeciesDog, Age: 4, Weight: 12})
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Data.Days, 7)

	bad := &stubGen{reply: `{"plan":"Day 1\nBreakfast: a","supplements":""}`}
	res = Run(context.Background(), newTestDispatcher(bad), MealPlanFlow, MealPlanInput{Species: profiles.SpeciesDog, Age: 4, Weight: 12})
	assert.False(t, res.Success)
	assert.True(t, apperr.IsOutputValidation(res.Err()))
}

func TestTextFromImage_DecodesRawAndDataURI(t *testing.T) {
	img := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	b64 := base64.StdEncoding.EncodeToString(img)

	g := &stubGen{reply: `{"text":"Pienso adulto"}`}
	res := Run(context.Background(), newTestDispatcher(g), TextFromImageFlow, TextFromImageInput{Image: b64, MIMEType: "image/png"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Pienso adulto", res.Data.Text)
	require.Len(t, g.calls[0].Media, 1)
	assert.Equal(t, img, g.calls[0].Media[0].Data)
	assert.Equal(t, "image/png", g.calls[0].Media[0].MIMEType)

	g = &stubGen{reply: `{"text":""}`}
	res = Run(context.Background(), newTestDispatcher(g), TextFromImageFlow, TextFromImageInput{Image: "data:image/jpeg;base64," + b64})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "image/jpeg", g.calls[0].Media[0].MIMEType)

	bad := []TextFromImageInput{
		{},
		{Image: b64},
		{Image: b64, MIMEType: "application/pdf"},
		{Image: "%%%not-base64%%%", MIMEType: "image/png"},
		{Image: "data:image/png," + b64},
	}
	for _, in := range bad {
		g := &stubGen{}
		res := Run(context.Background(), newTestDispatcher(g), TextFromImageFlow, in)
		assert.True(t, apperr.IsInvalidInput(res.Err()), "%+v", in)
		assert.Empty(t, g.calls)
	}
}

func TestSupplements_EmptyListAllowed(t *testing.T) {
	in := SupplementsInput{Species: profiles.SpeciesDog, Age: 4, Weight: 12}

	res := Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"supplements":[]}`}), SupplementsFlow, in)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Data.Supplements)

	res = Run(context.Background(), newTestDispatcher(&stubGen{reply: `{"supplements":[{"name":"","explanation":"x"}]}`}), SupplementsFlow, in)
	assert.False(t, res.Success)
}

func TestRegistry_PrefillFromProfileBodyWins(t *testing.T) {
	g := &stubGen{reply: tipsJSON(4)}
	d := newTestDispatcher(g)
	ep, ok := DefaultRegistry().Get("wellness-tips")
	require.True(t, ok)

	p := &profiles.Profile{Species: profiles.SpeciesCat}

	_, status := ep.invoke(context.Background(), d, nil, p)
	assert.Equal(t, 200, status)
	assert.Contains(t, g.calls[0].Prompt, "cat")

	_, status = ep.invoke(context.Background(), d, []byte(`{"species":"dog"}`), p)
	assert.Equal(t, 200, status)
	assert.Contains(t, g.calls[1].Prompt, "dog")

	_, status = ep.invoke(context.Background(), d, []byte(`{"species":`), p)
	assert.Equal(t, 400, status)

	_, status = ep.invoke(context.Background(), d, nil, nil)
	assert.Equal(t, 400, status)
	assert.Len(t, g.calls, 2)
}

func TestRegistry_ListsAllFlows(t *testing.T) {
	ids := make([]string, 0)
	for _, e := range DefaultRegistry().List() {
		ids = append(ids, e.ID)
		assert.NotEmpty(t, e.Description)
	}
	assert.Equal(t, []string{
		"activities", "cognitive-stimulation", "enrichment-plan", "longevity-score", "meal-plan",
		"nutrition-analysis", "prevention-advice", "supplements", "text-from-image", "wellness-tips",
	}, ids)
}
