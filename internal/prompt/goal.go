package prompt

import (
	"regexp"
	"strconv"
	"strings"

	"ai-health-advisor/internal/health"
)

const poundsToKg = 0.453592

var (
	loseKeywords     = []string{"lose", "reduce", "shed"}
	gainKeywords     = []string{"gain", "build", "increase"}
	maintainKeywords = []string{"maintain", "keep"}

	targetWeightRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kgs?|kilograms?|pounds?|lbs?)`)
	timelineRe     = regexp.MustCompile(`in (\d+)\s*(weeks?|months?|years?)`)
)

// ParseGoal classifies free goal text. It is a first-match heuristic:
// with several goals in one sentence only the first hit per category counts.
func ParseGoal(text string) health.Goal {
	lower := strings.ToLower(strings.TrimSpace(text))

	goal := health.Goal{
		Type:    health.GoalMaintain,
		RawText: strings.TrimSpace(text),
	}
	switch {
	case containsAny(lower, loseKeywords):
		goal.Type = health.GoalLose
	case containsAny(lower, gainKeywords):
		goal.Type = health.GoalGain
	case containsAny(lower, maintainKeywords):
		goal.Type = health.GoalMaintain
	}

	if m := targetWeightRe.FindStringSubmatch(lower); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			if strings.HasPrefix(m[2], "lb") || strings.HasPrefix(m[2], "pound") {
				w *= poundsToKg
			}
			goal.TargetWeightKg = &w
		}
	}

	if m := timelineRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			goal.Timeline = &health.Timeline{Value: n, Unit: strings.TrimSuffix(m[2], "s")}
		}
	}

	return goal
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
