package main

import (
	"fmt"

	"ai-health-advisor/internal/health"

	"github.com/spf13/cobra"
)

var profileFlags struct {
	name           string
	age            int
	gender         string
	height         string
	weight         string
	activity       string
	allergies      string
	medicalHistory string
	goal           string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the stored health profile",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the profile and goal of --user",
	Long: `Store the profile and goal of --user. Height accepts "175cm", "1.75m" or
5'10"; weight accepts "70kg" or "154 lb".`,
	Args: cobra.NoArgs,
	RunE: runProfileSet,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored profile of --user",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

func init() {
	f := profileSetCmd.Flags()
	f.StringVar(&profileFlags.name, "name", "", "Display name")
	f.IntVar(&profileFlags.age, "age", 0, "Age in years")
	f.StringVar(&profileFlags.gender, "gender", "", "Gender")
	f.StringVar(&profileFlags.height, "height", "", "Height (cm, m or feet/inches)")
	f.StringVar(&profileFlags.weight, "weight", "", "Weight (kg or lb)")
	f.StringVar(&profileFlags.activity, "activity", "Moderate", "Activity level")
	f.StringVar(&profileFlags.allergies, "allergies", "", "Allergies")
	f.StringVar(&profileFlags.medicalHistory, "medical-history", "", "Medical history")
	f.StringVar(&profileFlags.goal, "goal", "", "Free-text health goal")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	p := health.Profile{
		Name:           profileFlags.name,
		Age:            profileFlags.age,
		Gender:         profileFlags.gender,
		ActivityLevel:  profileFlags.activity,
		Allergies:      profileFlags.allergies,
		MedicalHistory: profileFlags.medicalHistory,
	}
	var err error
	if profileFlags.height != "" {
		if p.HeightM, err = health.ParseHeight(profileFlags.height); err != nil {
			return err
		}
	}
	if profileFlags.weight != "" {
		if p.WeightKg, err = health.ParseWeight(profileFlags.weight); err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	// Keep a blood report added by an earlier ingest.
	if stored, err := a.Profile(cmd.Context(), userID); err == nil {
		p.BloodReport = stored.Profile.BloodReport
	}
	if err := a.SaveProfile(cmd.Context(), userID, p, profileFlags.goal); err != nil {
		return err
	}
	bmi := p.BMI()
	cmd.Printf("Profile saved. BMI %.1f (%s)\n", bmi, health.WeightStatusFor(bmi))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	sp, err := a.Profile(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("no profile for %s: %w", userID, err)
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), sp)
	}
	p := sp.Profile
	cmd.Printf("Name: %s\nAge: %d\nGender: %s\n", p.Name, p.Age, p.Gender)
	cmd.Printf("Height: %.2f m\nWeight: %.1f kg\nBMI: %.1f\n", p.HeightM, p.WeightKg, p.BMI())
	cmd.Printf("Activity Level: %s\nAllergies: %s\nMedical History: %s\n", p.ActivityLevel, p.Allergies, p.MedicalHistory)
	cmd.Printf("Goal: %s\nUpdated: %s\n", sp.GoalText, sp.UpdatedAt.Format("2006-01-02 15:04"))
	return nil
}
