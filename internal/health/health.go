// Package health holds the patient data model shared by the prompt
// builder, the response parser and the advisor.
package health

import (
	"strconv"
)

// Profile is the user-entered demographic and health state.
type Profile struct {
	Name           string  `json:"name,omitempty"`
	Age            int     `json:"age" validate:"gte=0,lte=130"`
	Gender         string  `json:"gender"`
	HeightM        float64 `json:"height_m" validate:"gte=0,lte=3"`
	WeightKg       float64 `json:"weight_kg" validate:"gte=0,lte=700"`
	ActivityLevel  string  `json:"activity_level"`
	Allergies      string  `json:"allergies,omitempty"`
	MedicalHistory string  `json:"medical_history,omitempty"`
	BloodReport    string  `json:"blood_report,omitempty"`
}

// BMI computes the body mass index from the profile's height and weight.
func (p Profile) BMI() float64 {
	return CalculateBMI(p.WeightKg, p.HeightM)
}

type GoalType string

const (
	GoalLose     GoalType = "lose"
	GoalGain     GoalType = "gain"
	GoalMaintain GoalType = "maintain"
)

// Timeline is an "in N units" horizon, unit singular (week, month, year).
type Timeline struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Goal is a structured lose/gain/maintain target derived from free text.
type Goal struct {
	Type           GoalType  `json:"type"`
	TargetWeightKg *float64  `json:"target_weight_kg,omitempty"`
	Timeline       *Timeline `json:"timeline,omitempty"`
	RawText        string    `json:"raw_text"`
}

type WeightStatus string

const (
	WeightUnderweight WeightStatus = "Underweight"
	WeightNormal      WeightStatus = "Normal weight"
	WeightOverweight  WeightStatus = "Overweight"
	WeightObese       WeightStatus = "Obese"
	WeightUnknown     WeightStatus = "Unknown"
)

// WeightStatuses is the closed set a model may answer with.
var WeightStatuses = []WeightStatus{WeightUnderweight, WeightNormal, WeightOverweight, WeightObese}

// UnknownText marks a field the model did not provide.
const UnknownText = "Unknown"

// MacroAmount is one macronutrient target.
type MacroAmount struct {
	Grams   float64 `json:"grams"`
	Percent float64 `json:"percent"`
}

// MacroBreakdown keeps the raw model text next to the decomposed values.
// Parsed is false when no protein amount could be read.
type MacroBreakdown struct {
	Raw     string      `json:"raw"`
	Parsed  bool        `json:"parsed"`
	Protein MacroAmount `json:"protein"`
	Carbs   MacroAmount `json:"carbs"`
	Fats    MacroAmount `json:"fats"`
}

type NutritionRecommendation struct {
	BMI               float64        `json:"bmi"`
	WeightStatus      WeightStatus   `json:"weight_status"`
	CalorieTarget     *int           `json:"calorie_target"`
	MacroBreakdown    MacroBreakdown `json:"macro_breakdown"`
	NutritionGuidance string         `json:"nutrition_guidance"`
	MealPlan          string         `json:"meal_plan"`
	GroceryList       string         `json:"grocery_list"`
	NeedsDoctor       bool           `json:"needs_doctor"`
}

// CalorieTargetText renders the target, or "Unknown" when absent.
func (n NutritionRecommendation) CalorieTargetText() string {
	return optionalInt(n.CalorieTarget)
}

// Tutorial is a video found for an exercise or meal.
type Tutorial struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// DayPlan is one "Day N:" block of a workout schedule. Details always
// holds the full block text.
type DayPlan struct {
	Day         int        `json:"day"`
	Focus       string     `json:"focus"`
	Duration    string     `json:"duration"`
	CalorieBurn string     `json:"calorie_burn"`
	Details     string     `json:"details"`
	Tutorials   []Tutorial `json:"tutorials,omitempty"`
}

type WorkoutRecommendation struct {
	CalorieBurnTarget *int      `json:"calorie_burn_target"`
	Overview          string    `json:"overview"`
	Schedule          []DayPlan `json:"schedule"`
	Explanation       string    `json:"explanation"`
}

// CalorieBurnTargetText renders the target, or "Unknown" when absent.
func (w WorkoutRecommendation) CalorieBurnTargetText() string {
	return optionalInt(w.CalorieBurnTarget)
}

// FitnessStatus is the lightweight tracking state used by chat and the
// progress report.
type FitnessStatus struct {
	LastWorkout     string `json:"last_workout,omitempty"`
	NutritionStatus string `json:"nutrition_status,omitempty"`
	RecoveryScore   int    `json:"recovery_score,omitempty"`
}

// PatientContext is threaded explicitly through every advisor call.
type PatientContext struct {
	UserID         string                   `json:"user_id"`
	Profile        Profile                  `json:"profile"`
	Goal           Goal                     `json:"goal"`
	Symptoms       string                   `json:"symptoms,omitempty"`
	FitnessStatus  FitnessStatus            `json:"fitness_status"`
	HistoryText    string                   `json:"history_text,omitempty"`
	Recommendation *NutritionRecommendation `json:"recommendation,omitempty"`
}

func optionalInt(v *int) string {
	if v == nil {
		return UnknownText
	}
	return strconv.Itoa(*v)
}

// IntPtr is a convenience for optional integer fields.
func IntPtr(v int) *int {
	return &v
}

func Float64Ptr(v float64) *float64 {
	return &v
}
