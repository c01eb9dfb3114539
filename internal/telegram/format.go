package telegram

import (
	"fmt"
	"sort"
	"strings"

	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
)

func formatIngestResult(res app.IngestResult) string {
	var sb strings.Builder
	if res.Stored {
		sb.WriteString("✅ *Report saved to your health history*\n\n")
	} else {
		sb.WriteString("⚠️ *Report archived, but no text could be read*\n\n")
	}
	sb.WriteString(fmt.Sprintf("• Characters: %d\n", len(res.Extraction.Text)))
	sb.WriteString(fmt.Sprintf("• Tables: %d\n", len(res.Extraction.Tables)))
	if res.ProfileUpdated {
		sb.WriteString("• Blood report added to your profile\n")
	}
	if res.Extraction.Text != "" {
		sb.WriteString("\n")
		sb.WriteString(logger.Preview(res.Extraction.Text, 200))
	}
	return sb.String()
}

func formatNutritionMarkdownParts(rec health.NutritionRecommendation) (string, string) {
	var pb strings.Builder
	pb.WriteString("🥗 *Nutrition Plan*\n\n")
	pb.WriteString(fmt.Sprintf("*BMI*: %.1f (%s)\n", rec.BMI, rec.WeightStatus))
	pb.WriteString(fmt.Sprintf("*Calorie Target*: %s kcal/day\n", rec.CalorieTargetText()))
	if rec.MacroBreakdown.Parsed {
		m := rec.MacroBreakdown
		pb.WriteString(fmt.Sprintf("*Macros*: Protein %.0fg (%.0f%%), Carbs %.0fg (%.0f%%), Fats %.0fg (%.0f%%)\n",
			m.Protein.Grams, m.Protein.Percent, m.Carbs.Grams, m.Carbs.Percent, m.Fats.Grams, m.Fats.Percent))
	} else {
		pb.WriteString(fmt.Sprintf("*Macros*: %s\n", rec.MacroBreakdown.Raw))
	}
	if rec.NeedsDoctor {
		pb.WriteString("\n⚠️ _Please consult a doctor about your results._\n")
	}
	pb.WriteString("\n")
	pb.WriteString(rec.NutritionGuidance)
	if rec.MealPlan != "" {
		pb.WriteString("\n\n📅 *3-Day Meal Plan*\n")
		pb.WriteString(rec.MealPlan)
	}

	var sb strings.Builder
	if rec.GroceryList != "" {
		sb.WriteString("🛒 *Grocery List*\n\n")
		sb.WriteString(rec.GroceryList)
	}
	return pb.String(), sb.String()
}

func formatWorkoutMarkdown(plan health.WorkoutRecommendation) string {
	var sb strings.Builder
	sb.WriteString("🏋️ *Workout Plan*\n\n")
	sb.WriteString(fmt.Sprintf("*Calorie Burn Target*: %s kcal/day\n\n", plan.CalorieBurnTargetText()))
	sb.WriteString(plan.Overview)
	sb.WriteString("\n")
	for _, d := range plan.Schedule {
		sb.WriteString(fmt.Sprintf("\n*Day %d*: %s\n", d.Day, d.Focus))
		sb.WriteString(fmt.Sprintf("_%s, %s kcal_\n", d.Duration, d.CalorieBurn))
		for _, t := range d.Tutorials {
			sb.WriteString(fmt.Sprintf("▶️ [%s](%s)\n", t.Name, t.URL))
		}
	}
	if plan.Explanation != "" {
		sb.WriteString("\n")
		sb.WriteString(plan.Explanation)
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, sys metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d fallbacks)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Fallbacks))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", sys.AllocMB, sys.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", sys.Goroutines))

	paths := make([]string, 0, len(sys.DataSizes))
	for p := range sys.DataSizes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		sb.WriteString(fmt.Sprintf("• Disk %s: %s\n", p, sys.DataSizes[p]))
	}
	return sb.String()
}
