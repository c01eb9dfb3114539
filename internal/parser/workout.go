package parser

import (
	"regexp"
	"strconv"
	"strings"

	"ai-health-advisor/internal/health"
)

var workoutSections = newSectionSet(
	`Calorie Burn Target`,
	`(?:Plan )?Overview`,
	`Schedule`,
	`Explanation`,
)

const (
	defaultFocus       = "General Fitness"
	defaultDuration    = "30-45 minutes"
	maxExercisesPerDay = 5
)

var (
	burnTargetRe       = regexp.MustCompile(`(?i)Calorie Burn Target[:\s]*([\d,]+)\s*kcal`)
	overviewLabelRe    = newHeader(`(?:Plan )?Overview`)
	scheduleLabelRe    = newHeader(`Schedule`)
	explanationLabelRe = newHeader(`Explanation`)

	dayHeaderRe   = regexp.MustCompile(`(?i)Day\s*(\d+)\s*:`)
	focusRe       = regexp.MustCompile(`(?i)Focus\s*:\s*(.+?)(?:\s+-\s|$)`)
	durationRe    = regexp.MustCompile(`(?i)Duration\s*:?\s*(.+?)(?:\s+-\s|$)`)
	dayBurnRe     = regexp.MustCompile(`(?i)Calorie Burn[:\s]*([\d,]+)\s*kcal`)
	numberedItem  = regexp.MustCompile(`(?:^|\s)\d+\.\s+([^\s:][^:]*?)\s*(?::|\s-\s|$)`)
	bulletSplitRe = regexp.MustCompile(`\s+-\s+|\n`)
)

// Labels inside a day block that are structure, not exercises.
var dayLabels = map[string]bool{
	"duration":               true,
	"warm-up":                true,
	"warmup":                 true,
	"cool-down":              true,
	"cooldown":               true,
	"exercises":              true,
	"focus":                  true,
	"estimated calorie burn": true,
	"calorie burn":           true,
}

// ParseWorkout decodes a workout response.
func ParseWorkout(text string) health.WorkoutRecommendation {
	norm := Normalize(text)
	lines := layout(text)

	rec := health.WorkoutRecommendation{Schedule: []health.DayPlan{}}
	if v, ok := ParseCalorieBurnTarget(norm); ok {
		rec.CalorieBurnTarget = &v
	}
	rec.Overview, _ = workoutSections.span(lines, overviewLabelRe)
	if schedule, ok := workoutSections.span(lines, scheduleLabelRe); ok {
		rec.Schedule = ParseSchedule(schedule)
	}
	rec.Explanation, _ = workoutSections.span(lines, explanationLabelRe)
	return rec
}

// ParseCalorieBurnTarget reads "Calorie Burn Target: 450 kcal/day".
func ParseCalorieBurnTarget(norm string) (int, bool) {
	m := burnTargetRe.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	return atoiDigits(m[1])
}

// ParseSchedule splits a schedule span into "Day N:" blocks. Each block is
// kept verbatim in Details whatever its sub-fields yield.
func ParseSchedule(schedule string) []health.DayPlan {
	days := []health.DayPlan{}
	locs := dayHeaderRe.FindAllStringSubmatchIndex(schedule, -1)
	for i, loc := range locs {
		end := len(schedule)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		block := strings.TrimSpace(schedule[loc[1]:end])
		n, _ := strconv.Atoi(schedule[loc[2]:loc[3]])

		days = append(days, health.DayPlan{
			Day:         n,
			Focus:       ParseFocus(block),
			Duration:    ParseDuration(block),
			CalorieBurn: ParseDayCalorieBurn(block),
			Details:     block,
		})
	}
	return days
}

// ParseFocus prefers an explicit "Focus:" value, then the heading text
// before the first bullet.
func ParseFocus(block string) string {
	if m := focusRe.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1])
	}
	lead := block
	if i := strings.Index(block, " - "); i >= 0 {
		lead = block[:i]
	}
	lead = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lead), "-"))
	if lead == "" || strings.Contains(lead, ":") {
		return defaultFocus
	}
	return lead
}

func ParseDuration(block string) string {
	if m := durationRe.FindStringSubmatch(block); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return defaultDuration
}

func ParseDayCalorieBurn(block string) string {
	if m := dayBurnRe.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	return health.UnknownText
}

// ExtractExercises pulls up to five exercise names out of a day's details.
// Numbered items ("1. Squats: 3x12") win; otherwise "Name: ..." lines or
// bullets are used, skipping the plan's own labels.
func ExtractExercises(details string) []string {
	exercises := []string{}
	for _, m := range numberedItem.FindAllStringSubmatch(details, -1) {
		exercises = append(exercises, strings.TrimSpace(m[1]))
	}
	if len(exercises) == 0 {
		for _, seg := range bulletSplitRe.Split(details, -1) {
			name, _, found := strings.Cut(strings.TrimSpace(seg), ":")
			name = strings.TrimSpace(name)
			if !found || name == "" || dayLabels[strings.ToLower(name)] {
				continue
			}
			exercises = append(exercises, name)
		}
	}
	if len(exercises) > maxExercisesPerDay {
		exercises = exercises[:maxExercisesPerDay]
	}
	return exercises
}
