// Package prompt renders patient context into the format-constrained
// prompts sent to the chat model. The labelled sections requested here are
// the ones internal/parser reads back.
package prompt

import (
	"bytes"
	_ "embed"
	"strconv"
	"text/template"

	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
)

//go:embed health_prompt.md
var healthPrompt string

//go:embed workout_prompt.md
var workoutPrompt string

//go:embed chat_prompt.md
var chatPrompt string

const guidancePreviewLen = 100

type profileData struct {
	Age            string
	Gender         string
	Height         string
	Weight         string
	ActivityLevel  string
	Allergies      string
	MedicalHistory string
	BloodReport    string
}

type healthPromptData struct {
	profileData
	Symptoms string
	GoalText string
	GoalType string
	History  string
}

type workoutPromptData struct {
	profileData
	GoalText      string
	CalorieTarget string
	WeightStatus  string
	NeedsDoctor   string
}

type chatPromptData struct {
	profileData
	GoalText        string
	CalorieTarget   string
	GuidancePreview string
	LastWorkout     string
	NutritionStatus string
	RecoveryScore   int
	History         string
	Query           string
}

// BuildHealthPrompt renders the nutrition prompt for a patient.
func BuildHealthPrompt(pc health.PatientContext) (string, error) {
	goalType := string(pc.Goal.Type)
	if goalType == "" {
		goalType = "Custom"
	}
	return render("health", healthPrompt, healthPromptData{
		profileData: newProfileData(pc.Profile),
		Symptoms:    pc.Symptoms,
		GoalText:    goalText(pc.Goal),
		GoalType:    goalType,
		History:     historyText(pc.HistoryText),
	})
}

// BuildWorkoutPrompt renders the workout prompt, conditioned on the
// nutrition recommendation produced for the same patient.
func BuildWorkoutPrompt(pc health.PatientContext, rec health.NutritionRecommendation) (string, error) {
	status := string(rec.WeightStatus)
	if status == "" {
		status = health.UnknownText
	}
	needsDoctor := "No"
	if rec.NeedsDoctor {
		needsDoctor = "Yes"
	}
	return render("workout", workoutPrompt, workoutPromptData{
		profileData:   newProfileData(pc.Profile),
		GoalText:      goalText(pc.Goal),
		CalorieTarget: rec.CalorieTargetText(),
		WeightStatus:  status,
		NeedsDoctor:   needsDoctor,
	})
}

// BuildChatPrompt renders a conversational turn for query.
func BuildChatPrompt(query string, pc health.PatientContext) (string, error) {
	data := chatPromptData{
		profileData:     newProfileData(pc.Profile),
		GoalText:        goalText(pc.Goal),
		CalorieTarget:   health.UnknownText,
		LastWorkout:     orDefault(pc.FitnessStatus.LastWorkout, "Not recorded"),
		NutritionStatus: orDefault(pc.FitnessStatus.NutritionStatus, "Balanced"),
		RecoveryScore:   pc.FitnessStatus.RecoveryScore,
		History:         historyText(pc.HistoryText),
		Query:           query,
	}
	if data.RecoveryScore == 0 {
		data.RecoveryScore = 7
	}
	if rec := pc.Recommendation; rec != nil {
		data.CalorieTarget = rec.CalorieTargetText()
		data.GuidancePreview = truncateRunes(rec.NutritionGuidance, guidancePreviewLen)
	}
	return render("chat", chatPrompt, data)
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func newProfileData(p health.Profile) profileData {
	return profileData{
		Age:            intOrUnknown(p.Age),
		Gender:         orDefault(p.Gender, health.UnknownText),
		Height:         floatOrUnknown(p.HeightM),
		Weight:         floatOrUnknown(p.WeightKg),
		ActivityLevel:  orDefault(p.ActivityLevel, health.UnknownText),
		Allergies:      orDefault(p.Allergies, "None"),
		MedicalHistory: orDefault(p.MedicalHistory, "None"),
		BloodReport:    orDefault(p.BloodReport, "No recent blood work"),
	}
}

func goalText(g health.Goal) string {
	return orDefault(g.RawText, "No goal set")
}

func historyText(s string) string {
	return orDefault(s, history.NoHistoryText)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOrUnknown(v int) string {
	if v <= 0 {
		return health.UnknownText
	}
	return strconv.Itoa(v)
}

func floatOrUnknown(v float64) string {
	if v <= 0 {
		return health.UnknownText
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
