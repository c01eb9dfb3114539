package advisor

import (
	"context"
	"fmt"
	"strings"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
)

const summaryGuidanceLen = 100

// NutritionSummary is the text stored in history for a recommendation.
// The BMI falls back to the profile's own when the model gave none.
func NutritionSummary(rec health.NutritionRecommendation, profile health.Profile) string {
	bmi := rec.BMI
	if bmi == 0 {
		bmi = profile.BMI()
	}
	guidance := "N/A"
	if rec.NutritionGuidance != "" {
		r := []rune(rec.NutritionGuidance)
		if len(r) > summaryGuidanceLen {
			r = r[:summaryGuidanceLen]
		}
		guidance = string(r) + "..."
	}
	return fmt.Sprintf("BMI: %.1f\nCalorie Target: %s\nNutrition Guidance: %s\n", bmi, rec.CalorieTargetText(), guidance)
}

// MealPlanSummary is the text stored in history for a meal plan.
func MealPlanSummary(rec health.NutritionRecommendation) string {
	return fmt.Sprintf("Total Calories: %s\n\n%s", rec.CalorieTargetText(), rec.MealPlan)
}

// WorkoutSummary lists one line per day.
func WorkoutSummary(plan health.WorkoutRecommendation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Calorie Burn Target: %s kcal\n", plan.CalorieBurnTargetText())
	for i, day := range plan.Schedule {
		fmt.Fprintf(&sb, "\nDay %d: %s (%s)", i+1, day.Focus, day.CalorieBurn)
	}
	return sb.String()
}

// SaveNutrition stores the recommendation and, when present, its meal plan.
func (a *Advisor) SaveNutrition(ctx context.Context, pc health.PatientContext, rec health.NutritionRecommendation) bool {
	if a.history == nil {
		return false
	}
	ok := a.history.Append(ctx, pc.UserID, history.ReportHealthRecommendation, NutritionSummary(rec, pc.Profile))
	if rec.MealPlan != "" {
		ok = a.history.Append(ctx, pc.UserID, history.ReportMealPlan, MealPlanSummary(rec)) && ok
	}
	return ok
}

// SaveWorkout stores a workout plan summary.
func (a *Advisor) SaveWorkout(ctx context.Context, pc health.PatientContext, plan health.WorkoutRecommendation) bool {
	if a.history == nil {
		return false
	}
	return a.history.Append(ctx, pc.UserID, history.ReportWorkoutPlan, WorkoutSummary(plan))
}
