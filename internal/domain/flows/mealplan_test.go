package flows

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekPlan(format func(day int) string) string {
	var b strings.Builder
	for d := 1; d <= 7; d++ {
		b.WriteString(format(d))
		b.WriteString("\n")
	}
	return b.String()
}

func TestParseMealPlan_Lines(t *testing.T) {
	plan := weekPlan(func(d int) string {
		return fmt.Sprintf("Day %d\nBreakfast: rice and chicken %d\nDinner: salmon with pumpkin", d, d)
	})

	days, err := ParseMealPlan(plan)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, 1, days[0].Day)
	assert.Equal(t, "rice and chicken 1", days[0].Breakfast)
	assert.Equal(t, "salmon with pumpkin", days[6].Dinner)
}

func TestParseMealPlan_OrderedByDay(t *testing.T) {
	plan := "Day 2\nBreakfast: b2\nDinner: d2\n" +
		"Day 1\nBreakfast: b1\nDinner: d1\n" +
		weekPlan(func(d int) string {
			if d < 3 {
				return ""
			}
			return fmt.Sprintf("Day %d\nBreakfast: b%d\nDinner: d%d", d, d, d)
		})

	days, err := ParseMealPlan(plan)
	require.NoError(t, err)

	want := make([]DayPlan, 0, MealPlanDays)
	for d := 1; d <= MealPlanDays; d++ {
		want = append(want, DayPlan{Day: d, Breakfast: fmt.Sprintf("b%d", d), Dinner: fmt.Sprintf("d%d", d)})
	}
	if diff := cmp.Diff(want, days); diff != "" {
		t.Errorf("ParseMealPlan mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMealPlan_MarkdownAndInline(t *testing.T) {
	plan := weekPlan(func(d int) string {
		if d%2 == 0 {
			return fmt.Sprintf("### Día %d\n- **Breakfast:** oats\n- **Dinner:** turkey", d)
		}
		return fmt.Sprintf("Day %d: Breakfast: eggs; Dinner: beef", d)
	})

	days, err := ParseMealPlan(plan)
	require.NoError(t, err)
	assert.Equal(t, "eggs", days[0].Breakfast)
	assert.Equal(t, "beef", days[0].Dinner)
	assert.Equal(t, "oats", days[1].Breakfast)
	assert.Equal(t, "turkey", days[1].Dinner)
}

func TestParseMealPlan_Rejects(t *testing.T) {
	cases := map[string]string{
		"no days": "Breakfast: a\nDinner: b",
		"six days": weekPlan(func(d int) string {
			if d == 7 {
				return ""
			}
			return fmt.Sprintf("Day %d\nBreakfast: a\nDinner: b", d)
		}),
		"missing dinner": weekPlan(func(d int) string {
			if d == 3 {
				return "Day 3\nBreakfast: a\nLunch: b"
			}
			return fmt.Sprintf("Day %d\nBreakfast: a\nDinner: b", d)
		}),
		"repeated day": weekPlan(func(d int) string {
			if d == 7 {
				d = 6
			}
			return fmt.Sprintf("Day %d\nBreakfast: a\nDinner: b", d)
		}),
		"day out of range": weekPlan(func(d int) string {
			if d == 7 {
				d = 8
			}
			return fmt.Sprintf("Day %d\nBreakfast: a\nDinner: b", d)
		}),
	}

	for name, plan := range cases {
		_, err := ParseMealPlan(plan)
		assert.Error(t, err, name)
	}
}
