package parser

import (
	"regexp"
	"strconv"
	"strings"

	"ai-health-advisor/internal/health"
)

var nutritionSections = newSectionSet(
	`BMI`,
	`Weight Status`,
	`Daily Calorie Target`,
	`Macro Breakdown`,
	`Nutrition Guidance`,
	`3-Day Meal Plan`,
	`Grocery List`,
	`Needs Doctor`,
)

var (
	bmiRe           = regexp.MustCompile(`(?i)BMI\s*:\s*([\d.]+)`)
	weightStatusRe  = newHeader(`Weight Status`)
	calorieRe       = regexp.MustCompile(`(?i)Daily Calorie Target\s*:\s*([\d,]+)\s*kcal`)
	macroLabelRe    = newHeader(`Macro Breakdown`)
	guidanceLabelRe = newHeader(`Nutrition Guidance`)
	mealPlanLabelRe = newHeader(`3-Day Meal Plan`)
	groceryLabelRe  = newHeader(`Grocery List`)
	needsDoctorRe   = regexp.MustCompile(`(?i)Needs Doctor\s*:\s*(yes|no|true|false)\b`)
	leadingWordsRe  = regexp.MustCompile(`^[\p{L}\s]+`)
)

// ParseNutrition decodes a nutrition response.
func ParseNutrition(text string) health.NutritionRecommendation {
	norm := Normalize(text)
	lines := layout(text)

	rec := health.NutritionRecommendation{
		WeightStatus: health.WeightUnknown,
		MacroBreakdown: health.MacroBreakdown{
			Raw: health.UnknownText,
		},
	}
	if v, ok := ParseBMI(norm); ok {
		rec.BMI = v
	}
	if v, ok := ParseWeightStatus(lines); ok {
		rec.WeightStatus = v
	}
	if v, ok := ParseCalorieTarget(norm); ok {
		rec.CalorieTarget = &v
	}
	if raw, ok := nutritionSections.span(lines, macroLabelRe); ok {
		rec.MacroBreakdown = ParseMacros(raw)
	}
	rec.NutritionGuidance, _ = nutritionSections.span(lines, guidanceLabelRe)
	rec.MealPlan, _ = nutritionSections.span(lines, mealPlanLabelRe)
	rec.GroceryList, _ = nutritionSections.span(lines, groceryLabelRe)
	rec.NeedsDoctor, _ = ParseNeedsDoctor(norm)
	return rec
}

// ParseBMI reads the number after "BMI:".
func ParseBMI(norm string) (float64, bool) {
	m := bmiRe.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseWeightStatus canonicalises the status label. ok is false when the
// label is missing or names a status outside the closed set.
func ParseWeightStatus(text string) (health.WeightStatus, bool) {
	value, ok := nutritionSections.span(text, weightStatusRe)
	if !ok {
		return health.WeightUnknown, false
	}
	words := strings.TrimSpace(leadingWordsRe.FindString(value))
	for _, s := range health.WeightStatuses {
		if strings.EqualFold(words, string(s)) {
			return s, true
		}
	}
	return health.WeightUnknown, false
}

// ParseCalorieTarget reads "Daily Calorie Target: 2,100 kcal".
func ParseCalorieTarget(norm string) (int, bool) {
	m := calorieRe.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	return atoiDigits(m[1])
}

// ParseNeedsDoctor reads a yes/no/true/false answer; ok is false when the
// section is absent.
func ParseNeedsDoctor(norm string) (bool, bool) {
	m := needsDoctorRe.FindStringSubmatch(norm)
	if m == nil {
		return false, false
	}
	answer := strings.ToLower(m[1])
	return answer == "yes" || answer == "true", true
}

func atoiDigits(s string) (int, bool) {
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}
