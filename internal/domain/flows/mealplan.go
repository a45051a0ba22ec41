package flows

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const MealPlanDays = 7

// DayPlan es un día del plan semanal.
type DayPlan struct {
	Day       int    `json:"day"`
	Breakfast string `json:"breakfast"`
	Dinner    string `json:"dinner"`
}

var (
	dayHeader = regexp.MustCompile(`(?im)^[\s#*_>\-]*(?:day|d[ií]a)\s*(\d+)`)
	mealLabel = regexp.MustCompile(`(?i)\b(breakfast|dinner)\s*:`)
)

// ParseMealPlan extrae los días del texto del plan. Cada sección arranca con
// "Day N" y debe tener las etiquetas "Breakfast:" y "Dinner:". Exige los días
// 1..7, cada uno una vez.
func ParseMealPlan(text string) ([]DayPlan, error) {
	headers := dayHeader.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		return nil, fmt.Errorf("plan has no day sections")
	}

	seen := make(map[int]bool, len(headers))
	out := make([]DayPlan, 0, len(headers))

	for i, h := range headers {
		day, err := strconv.Atoi(text[h[2]:h[3]])
		if err != nil {
			return nil, fmt.Errorf("bad day number %q", text[h[2]:h[3]])
		}
		if day < 1 || day > MealPlanDays {
			return nil, fmt.Errorf("day %d out of range 1-%d", day, MealPlanDays)
		}
		if seen[day] {
			return nil, fmt.Errorf("day %d appears more than once", day)
		}
		seen[day] = true

		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		dp := parseDay(day, text[h[1]:end])
		if dp.Breakfast == "" {
			return nil, fmt.Errorf("day %d is missing the Breakfast: label", day)
		}
		if dp.Dinner == "" {
			return nil, fmt.Errorf("day %d is missing the Dinner: label", day)
		}
		out = append(out, dp)
	}

	if len(out) != MealPlanDays {
		return nil, fmt.Errorf("plan has %d days, want %d", len(out), MealPlanDays)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func parseDay(day int, body string) DayPlan {
	dp := DayPlan{Day: day}
	labels := mealLabel.FindAllStringSubmatchIndex(body, -1)
	for i, l := range labels {
		end := len(body)
		if i+1 < len(labels) {
			end = labels[i+1][0]
		}
		v := body[l[1]:end]
		if nl := strings.IndexByte(v, '\n'); nl >= 0 {
			v = v[:nl]
		}
		v = strings.Trim(v, " \t\r*_-;,|")

		// la primera aparición de cada etiqueta gana
		switch strings.ToLower(body[l[2]:l[3]]) {
		case "breakfast":
			if dp.Breakfast == "" {
				dp.Breakfast = v
			}
		case "dinner":
			if dp.Dinner == "" {
				dp.Dinner = v
			}
		}
	}
	return dp
}
