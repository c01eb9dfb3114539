package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-health-advisor/internal/health"
)

func samplePatient() health.PatientContext {
	return health.PatientContext{
		UserID: "u1",
		Profile: health.Profile{
			Age:           41,
			Gender:        "male",
			HeightM:       1.8,
			WeightKg:      92.5,
			ActivityLevel: "sedentary",
			Allergies:     "peanuts",
		},
		Goal:     ParseGoal("I want to lose 8kg in 3 months"),
		Symptoms: "fatigue in the afternoon",
	}
}

func TestBuildHealthPrompt(t *testing.T) {
	got, err := BuildHealthPrompt(samplePatient())
	require.NoError(t, err)

	for _, section := range []string{
		"**BMI**:",
		"**Weight Status**:",
		"**Daily Calorie Target**:",
		"**Macro Breakdown**:",
		"**Nutrition Guidance**:",
		"**3-Day Meal Plan**:",
		"**Grocery List**:",
		"**Needs Doctor**:",
	} {
		assert.Contains(t, got, section)
	}

	assert.Contains(t, got, "- Age: 41")
	assert.Contains(t, got, "- Height: 1.8 m")
	assert.Contains(t, got, "- Weight: 92.5 kg")
	assert.Contains(t, got, "- Allergies: peanuts")
	assert.Contains(t, got, "- Medical History: None")
	assert.Contains(t, got, "- Blood Report: No recent blood work")
	assert.Contains(t, got, "I want to lose 8kg in 3 months (Goal Type: lose)")
	assert.Contains(t, got, "fatigue in the afternoon")
	assert.Contains(t, got, "No previous health records found.")
	assert.NotContains(t, got, "&#39;")
}

func TestBuildHealthPromptIsDeterministic(t *testing.T) {
	a, err := BuildHealthPrompt(samplePatient())
	require.NoError(t, err)
	b, err := BuildHealthPrompt(samplePatient())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildHealthPromptWithoutGoal(t *testing.T) {
	got, err := BuildHealthPrompt(health.PatientContext{})
	require.NoError(t, err)
	assert.Contains(t, got, "No goal set (Goal Type: Custom)")
	assert.Contains(t, got, "- Age: Unknown")
	assert.NotContains(t, got, "**Current Symptoms**")
}

func TestBuildWorkoutPrompt(t *testing.T) {
	rec := health.NutritionRecommendation{
		CalorieTarget: health.IntPtr(2100),
		WeightStatus:  health.WeightOverweight,
	}
	got, err := BuildWorkoutPrompt(samplePatient(), rec)
	require.NoError(t, err)

	for _, section := range []string{"**Calorie Burn Target**:", "**Plan Overview**:", "**Schedule**:", "**Explanation**:"} {
		assert.Contains(t, got, section)
	}
	assert.Contains(t, got, "- Calorie Target: 2100 kcal")
	assert.Contains(t, got, "- Weight Status: Overweight")
	assert.Contains(t, got, "- Needs Doctor: No")

	got, err = BuildWorkoutPrompt(samplePatient(), health.NutritionRecommendation{})
	require.NoError(t, err)
	assert.Contains(t, got, "- Calorie Target: Unknown kcal")
	assert.Contains(t, got, "- Weight Status: Unknown")
}

func TestBuildChatPrompt(t *testing.T) {
	pc := samplePatient()
	pc.Recommendation = &health.NutritionRecommendation{
		CalorieTarget:     health.IntPtr(2000),
		NutritionGuidance: strings.Repeat("g", 150),
	}
	pc.HistoryText = "Recent Health History:\n---\n[Blood - 2025-01-01 10:00]\nLDL 130\n"

	got, err := BuildChatPrompt("Can I eat rice at night?", pc)
	require.NoError(t, err)

	assert.Contains(t, got, "**Health Context**:")
	assert.Contains(t, got, "**User Question**:\nCan I eat rice at night?")
	assert.Contains(t, got, "**Response Guidelines**:")
	assert.Contains(t, got, "5. Use bullet points for complex information")
	assert.Contains(t, got, "- Calorie Target: 2000 kcal")
	assert.Contains(t, got, "- Nutrition Guidance: "+strings.Repeat("g", 100)+"...\n")
	assert.Contains(t, got, "- Recovery Score: 7/10")
	assert.Contains(t, got, "LDL 130")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), "**Response**:"))
}

func TestParseGoal(t *testing.T) {
	t.Run("lose with timeline", func(t *testing.T) {
		g := ParseGoal("I want to lose 5kg in 2 months")
		assert.Equal(t, health.GoalLose, g.Type)
		require.NotNil(t, g.TargetWeightKg)
		assert.Equal(t, 5.0, *g.TargetWeightKg)
		require.NotNil(t, g.Timeline)
		assert.Equal(t, health.Timeline{Value: 2, Unit: "month"}, *g.Timeline)
	})

	t.Run("gain without timeline", func(t *testing.T) {
		g := ParseGoal("Gain muscle mass to reach 80kg")
		assert.Equal(t, health.GoalGain, g.Type)
		require.NotNil(t, g.TargetWeightKg)
		assert.Equal(t, 80.0, *g.TargetWeightKg)
		assert.Nil(t, g.Timeline)
	})

	t.Run("pounds converted", func(t *testing.T) {
		g := ParseGoal("shed 10 lbs in 1 year")
		assert.Equal(t, health.GoalLose, g.Type)
		require.NotNil(t, g.TargetWeightKg)
		assert.InDelta(t, 4.53592, *g.TargetWeightKg, 1e-6)
		assert.Equal(t, "year", g.Timeline.Unit)
	})

	t.Run("maintain keyword", func(t *testing.T) {
		g := ParseGoal("Keep my weight stable")
		assert.Equal(t, health.GoalMaintain, g.Type)
		assert.Nil(t, g.TargetWeightKg)
	})

	t.Run("default maintain", func(t *testing.T) {
		g := ParseGoal("feel more energetic")
		assert.Equal(t, health.GoalMaintain, g.Type)
		assert.Equal(t, "feel more energetic", g.RawText)
	})

	t.Run("first match wins", func(t *testing.T) {
		g := ParseGoal("lose fat and gain muscle, 70 kg then 75 kg")
		assert.Equal(t, health.GoalLose, g.Type)
		assert.Equal(t, 70.0, *g.TargetWeightKg)
	})
}
