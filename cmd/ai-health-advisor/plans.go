package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/prompt"

	"github.com/spf13/cobra"
)

var (
	profileFile   string
	goalText      string
	nutritionFile string
	symptoms      string
	savePlan      bool
)

var nutritionCmd = &cobra.Command{
	Use:   "nutrition",
	Short: "Generate a nutrition plan",
	Long: `Generate a nutrition plan for the stored profile of --user, or for the
profile JSON given with --profile.`,
	Args: cobra.NoArgs,
	RunE: runNutrition,
}

var workoutCmd = &cobra.Command{
	Use:   "workout",
	Short: "Generate a weekly workout plan",
	Args:  cobra.NoArgs,
	RunE:  runWorkout,
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the health advisor a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

var actionCmd = &cobra.Command{
	Use:       "action [name]",
	Short:     "Run a quick action",
	Args:      cobra.ExactArgs(1),
	ValidArgs: actionNames(),
	RunE:      runAction,
}

func init() {
	for _, c := range []*cobra.Command{nutritionCmd, workoutCmd} {
		c.Flags().StringVar(&profileFile, "profile", "", "Profile JSON file overriding the stored profile")
		c.Flags().StringVar(&goalText, "goal", "", "Free-text goal used with --profile")
		c.Flags().BoolVar(&savePlan, "save", false, "Record the plan summary in the history")
	}
	nutritionCmd.Flags().StringVar(&symptoms, "symptoms", "", "Current symptoms")
	workoutCmd.Flags().StringVar(&nutritionFile, "nutrition", "", "Nutrition plan JSON from a previous run")

	rootCmd.AddCommand(nutritionCmd)
	rootCmd.AddCommand(workoutCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(actionCmd)
}

func actionNames() []string {
	var names []string
	for _, a := range advisor.Actions() {
		names = append(names, string(a))
	}
	return names
}

func readJSONFile(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// adHocContext builds a patient context from --profile and --goal.
func adHocContext() (health.PatientContext, error) {
	var p health.Profile
	if err := readJSONFile(profileFile, &p); err != nil {
		return health.PatientContext{}, err
	}
	return health.PatientContext{
		UserID:   userID,
		Profile:  p,
		Goal:     prompt.ParseGoal(goalText),
		Symptoms: symptoms,
	}, nil
}

func runNutrition(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var rec health.NutritionRecommendation
	if profileFile != "" {
		pc, err := adHocContext()
		if err != nil {
			return err
		}
		rec = a.Advisor().GenerateNutritionPlan(ctx, pc)
		if savePlan {
			a.Advisor().SaveNutrition(ctx, pc, rec)
		}
	} else {
		rec, err = a.Nutrition(ctx, userID, savePlan)
		if err != nil {
			return err
		}
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	cmd.Printf("BMI: %.1f (%s)\n", rec.BMI, rec.WeightStatus)
	cmd.Printf("Daily Calorie Target: %s\n", rec.CalorieTargetText())
	cmd.Printf("Macro Breakdown: %s\n", rec.MacroBreakdown.Raw)
	cmd.Printf("Needs Doctor: %t\n\n", rec.NeedsDoctor)
	cmd.Printf("Nutrition Guidance:\n%s\n", rec.NutritionGuidance)
	if rec.MealPlan != "" {
		cmd.Printf("\n3-Day Meal Plan:\n%s\n", rec.MealPlan)
	}
	cmd.Printf("\nGrocery List:\n%s\n", rec.GroceryList)
	return nil
}

func runWorkout(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var rec *health.NutritionRecommendation
	if nutritionFile != "" {
		rec = &health.NutritionRecommendation{}
		if err := readJSONFile(nutritionFile, rec); err != nil {
			return err
		}
	}

	var plan health.WorkoutRecommendation
	if profileFile != "" {
		pc, err := adHocContext()
		if err != nil {
			return err
		}
		pc.Recommendation = rec
		plan = a.Advisor().GenerateWorkoutPlan(ctx, pc)
		if savePlan {
			a.Advisor().SaveWorkout(ctx, pc, plan)
		}
	} else {
		plan, err = a.Workout(ctx, userID, rec, savePlan)
		if err != nil {
			return err
		}
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), plan)
	}
	cmd.Printf("Calorie Burn Target: %s kcal/day\n\n%s\n", plan.CalorieBurnTargetText(), plan.Overview)
	for _, d := range plan.Schedule {
		cmd.Printf("\nDay %d: %s (%s, %s kcal)\n%s\n", d.Day, d.Focus, d.Duration, d.CalorieBurn, d.Details)
		for _, t := range d.Tutorials {
			cmd.Printf("  %s: %s\n", t.Name, t.URL)
		}
	}
	cmd.Printf("\n%s\n", plan.Explanation)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	reply, err := a.Respond(cmd.Context(), userID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), reply)
	}
	cmd.Println(reply.Text)
	return nil
}

func runAction(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.RunAction(cmd.Context(), userID, advisor.Action(args[0]))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	if res.Status == advisor.StatusError {
		return fmt.Errorf("%s", res.Message)
	}
	cmd.Println(res.Response)
	return nil
}
