package parser

import (
	"regexp"
	"strconv"

	"ai-health-advisor/internal/health"
)

// Protein patterns, tried in order until one yields a number.
var proteinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Protein:? ([\d.]+)g?.*?\(([\d.]+)%`),
	regexp.MustCompile(`(?i)Protein:? ([\d.]+)g?.*?\(([\d.]+)%\)`),
	regexp.MustCompile(`(?i)Protein \(?g\)?:? ([\d.]+).*?\(([\d.]+)%`),
	regexp.MustCompile(`(?i)Protein[^\d]*([\d.]+)[^\d]*([\d.]+)`),
}

var (
	carbsRe = regexp.MustCompile(`(?i)Carb(?:ohydrate)?s?:? ([\d.]+)g?.*?\(([\d.]+)%`)
	fatsRe  = regexp.MustCompile(`(?i)Fats?:? ([\d.]+)g?.*?\(([\d.]+)%`)
)

// Interpolation used when only protein is readable.
const (
	carbsPerProtein = 1.5
	fatsPerProtein  = 0.7
	defaultCarbsPct = 50
	defaultFatsPct  = 25
)

// ParseMacros decomposes a macro breakdown span. Parsed is false when no
// protein amount is found; carbs and fats are derived from protein when
// they are not stated.
func ParseMacros(raw string) health.MacroBreakdown {
	mb := health.MacroBreakdown{Raw: raw}

	protein, ok := ParseProtein(raw)
	if !ok {
		return mb
	}
	mb.Parsed = true
	mb.Protein = protein

	if carbs, ok := matchAmount(carbsRe, raw); ok {
		mb.Carbs = carbs
	} else {
		mb.Carbs = health.MacroAmount{Grams: protein.Grams * carbsPerProtein, Percent: defaultCarbsPct}
	}
	if fats, ok := matchAmount(fatsRe, raw); ok {
		mb.Fats = fats
	} else {
		mb.Fats = health.MacroAmount{Grams: protein.Grams * fatsPerProtein, Percent: defaultFatsPct}
	}
	return mb
}

// ParseProtein runs the protein cascade and stops at the first match.
func ParseProtein(raw string) (health.MacroAmount, bool) {
	for _, re := range proteinPatterns {
		if amount, ok := matchAmount(re, raw); ok {
			return amount, true
		}
	}
	return health.MacroAmount{}, false
}

func matchAmount(re *regexp.Regexp, s string) (health.MacroAmount, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return health.MacroAmount{}, false
	}
	grams, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return health.MacroAmount{}, false
	}
	amount := health.MacroAmount{Grams: grams}
	if len(m) > 2 && m[2] != "" {
		if pct, err := strconv.ParseFloat(m[2], 64); err == nil {
			amount.Percent = pct
		}
	}
	return amount, true
}
