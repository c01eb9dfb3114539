package advisor

import (
	"context"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/parser"
	"ai-health-advisor/internal/prompt"
	"ai-health-advisor/internal/videos"
)

const (
	llmInitFailedNutrition = "LLM init failed"
	llmInitFailedWorkout   = "LLM init failed."
	noGroceryList          = "No grocery list provided"
	noWorkoutPlan          = "No workout plan provided"
)

// NutritionFallback is returned whenever no parsed answer is available.
func NutritionFallback(reason string) health.NutritionRecommendation {
	return health.NutritionRecommendation{
		BMI:               0,
		WeightStatus:      health.WeightUnknown,
		CalorieTarget:     nil,
		MacroBreakdown:    health.MacroBreakdown{Raw: health.UnknownText},
		NutritionGuidance: reason,
		MealPlan:          "",
		GroceryList:       noGroceryList,
		NeedsDoctor:       false,
	}
}

// WorkoutFallback is returned whenever no parsed workout is available.
func WorkoutFallback(reason string) health.WorkoutRecommendation {
	return health.WorkoutRecommendation{
		CalorieBurnTarget: nil,
		Overview:          noWorkoutPlan,
		Schedule:          []health.DayPlan{},
		Explanation:       reason,
	}
}

// GenerateNutritionPlan produces the nutrition recommendation for pc.
func (a *Advisor) GenerateNutritionPlan(ctx context.Context, pc health.PatientContext) health.NutritionRecommendation {
	if a.textGen == nil {
		a.unavailable(ctx, OpNutrition)
		return a.nutritionFallback(pc, llmInitFailedNutrition)
	}

	p, err := prompt.BuildHealthPrompt(a.withHistory(ctx, pc))
	if err != nil {
		a.log.Error("failed to build health prompt", "user_id", pc.UserID, "error", err)
		return a.nutritionFallback(pc, err.Error())
	}

	resp, err := a.complete(ctx, OpNutrition, healthSystemMessage, p, nutritionMaxTokens)
	if err != nil {
		a.log.Error("health recommendation generation error", "user_id", pc.UserID, "error", err)
		return a.nutritionFallback(pc, ErrorText(err))
	}

	rec := parser.ParseNutrition(resp.Content)
	a.log.Info("parsed health response", "user_id", pc.UserID, "bmi", rec.BMI, "calorie_target", rec.CalorieTargetText())
	return rec
}

func (a *Advisor) nutritionFallback(pc health.PatientContext, reason string) health.NutritionRecommendation {
	rec := NutritionFallback(reason)
	if a.opts.ComputeLocalBMI {
		rec.BMI = pc.Profile.BMI()
		rec.WeightStatus = health.WeightStatusFor(rec.BMI)
	}
	return rec
}

// GenerateWorkoutPlan produces a workout plan conditioned on a nutrition
// recommendation. When pc carries no recommendation an empty one is used.
func (a *Advisor) GenerateWorkoutPlan(ctx context.Context, pc health.PatientContext) health.WorkoutRecommendation {
	if a.textGen == nil {
		a.unavailable(ctx, OpWorkout)
		return WorkoutFallback(llmInitFailedWorkout)
	}

	var rec health.NutritionRecommendation
	if pc.Recommendation != nil {
		rec = *pc.Recommendation
	}
	p, err := prompt.BuildWorkoutPrompt(pc, rec)
	if err != nil {
		a.log.Error("failed to build workout prompt", "user_id", pc.UserID, "error", err)
		return WorkoutFallback(err.Error())
	}

	resp, err := a.complete(ctx, OpWorkout, workoutSystemMessage, p, workoutMaxTokens)
	if err != nil {
		a.log.Error("workout plan generation error", "user_id", pc.UserID, "error", err)
		return WorkoutFallback(ErrorText(err))
	}

	plan := parser.ParseWorkout(resp.Content)
	a.log.Info("parsed workout response", "user_id", pc.UserID, "days", len(plan.Schedule))

	if a.tutorials != nil {
		for i := range plan.Schedule {
			names := parser.ExtractExercises(plan.Schedule[i].Details)
			plan.Schedule[i].Tutorials = a.tutorials.FindTutorials(ctx, names, videos.ExerciseSuffix, a.opts.TutorialsPerDay)
		}
	}
	return plan
}
