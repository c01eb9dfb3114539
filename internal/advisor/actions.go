package advisor

import (
	"context"
	"fmt"
	"strings"

	"ai-health-advisor/internal/health"
)

// Action names a chat-triggered sub-task.
type Action string

const (
	ActionWorkoutGeneration Action = "workout_generation"
	ActionMealPlan          Action = "meal_plan"
	ActionGoalAdjustment    Action = "goal_adjustment"
	ActionProgressReport    Action = "progress_report"
	ActionNutritionTips     Action = "nutrition_tips"
	ActionRecoveryAdvice    Action = "recovery_advice"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	goalUpdatedText   = "Your goals have been updated successfully!"
	nutritionTipsText = "Focus on protein-rich foods after workouts, stay hydrated, and include colorful vegetables in every meal."
	recoveryText      = "Ensure you're getting 7-9 hours of sleep, consider foam rolling, and stay hydrated."
)

// Trigger phrases, checked in order against lower-cased chat text.
var triggers = []struct {
	phrase string
	action Action
}{
	{"create a workout", ActionWorkoutGeneration},
	{"generate meal plan", ActionMealPlan},
	{"adjust my goal", ActionGoalAdjustment},
	{"show progress", ActionProgressReport},
	{"nutrition advice", ActionNutritionTips},
	{"recovery tip", ActionRecoveryAdvice},
}

// ActionResult is the outcome of RunAction. Response is set on success,
// Message on error.
type ActionResult struct {
	Status    string                          `json:"status"`
	Action    Action                          `json:"action"`
	Response  string                          `json:"response,omitempty"`
	Message   string                          `json:"message,omitempty"`
	Nutrition *health.NutritionRecommendation `json:"nutrition,omitempty"`
	Workout   *health.WorkoutRecommendation   `json:"workout,omitempty"`
	Goal      *health.Goal                    `json:"goal,omitempty"`
}

type actionHandler func(a *Advisor, ctx context.Context, pc health.PatientContext) ActionResult

var actionHandlers = map[Action]actionHandler{
	ActionWorkoutGeneration: (*Advisor).workoutAction,
	ActionMealPlan:          (*Advisor).mealPlanAction,
	ActionGoalAdjustment:    (*Advisor).goalAction,
	ActionProgressReport:    (*Advisor).progressAction,
	ActionNutritionTips:     fixedText(ActionNutritionTips, nutritionTipsText),
	ActionRecoveryAdvice:    fixedText(ActionRecoveryAdvice, recoveryText),
}

// Actions lists the supported action names.
func Actions() []Action {
	out := make([]Action, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, t.action)
	}
	return out
}

// DetectAction maps chat text onto an action by trigger phrase.
func DetectAction(message string) (Action, bool) {
	lower := strings.ToLower(message)
	for _, t := range triggers {
		if strings.Contains(lower, t.phrase) {
			return t.action, true
		}
	}
	return "", false
}

// RunAction dispatches action. Unknown actions return an error result
// without touching the model.
func (a *Advisor) RunAction(ctx context.Context, pc health.PatientContext, action Action) ActionResult {
	handler, ok := actionHandlers[action]
	if !ok {
		a.log.Warn("unknown action", "action", action)
		return ActionResult{
			Status:  StatusError,
			Action:  action,
			Message: fmt.Sprintf("Unknown action: %s", action),
		}
	}
	return handler(a, ctx, pc)
}

func (a *Advisor) workoutAction(ctx context.Context, pc health.PatientContext) ActionResult {
	plan := a.GenerateWorkoutPlan(ctx, pc)
	return ActionResult{
		Status:   StatusSuccess,
		Action:   ActionWorkoutGeneration,
		Response: "Here's your personalized workout plan:\n" + WorkoutSummary(plan),
		Workout:  &plan,
	}
}

func (a *Advisor) mealPlanAction(ctx context.Context, pc health.PatientContext) ActionResult {
	rec := a.GenerateNutritionPlan(ctx, pc)
	body := rec.MealPlan
	if body == "" {
		body = rec.NutritionGuidance
	}
	return ActionResult{
		Status:    StatusSuccess,
		Action:    ActionMealPlan,
		Response:  "Here's your personalized meal plan:\n" + body,
		Nutrition: &rec,
	}
}

func (a *Advisor) goalAction(_ context.Context, pc health.PatientContext) ActionResult {
	goal := pc.Goal
	return ActionResult{
		Status:   StatusSuccess,
		Action:   ActionGoalAdjustment,
		Response: goalUpdatedText,
		Goal:     &goal,
	}
}

func (a *Advisor) progressAction(_ context.Context, pc health.PatientContext) ActionResult {
	return ActionResult{
		Status:   StatusSuccess,
		Action:   ActionProgressReport,
		Response: ProgressReport(pc),
	}
}

func fixedText(action Action, text string) actionHandler {
	return func(_ *Advisor, _ context.Context, _ health.PatientContext) ActionResult {
		return ActionResult{Status: StatusSuccess, Action: action, Response: text}
	}
}

// ProgressReport renders the fitness status of pc.
func ProgressReport(pc health.PatientContext) string {
	goal := pc.Goal.RawText
	if goal == "" {
		goal = "No goal set"
	}
	last := pc.FitnessStatus.LastWorkout
	if last == "" {
		last = "Not recorded"
	}
	nutrition := pc.FitnessStatus.NutritionStatus
	if nutrition == "" {
		nutrition = "Balanced"
	}
	recovery := pc.FitnessStatus.RecoveryScore
	if recovery == 0 {
		recovery = 7
	}
	return fmt.Sprintf("Fitness Progress Report:\n- Goal: %s\n- Last Workout: %s\n- Nutrition Status: %s\n- Recovery Score: %d/10",
		goal, last, nutrition, recovery)
}
