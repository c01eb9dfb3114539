package main

import (
	"time"

	"ai-health-advisor/internal/httpapi"

	"github.com/spf13/cobra"
)

var (
	usageDays   int
	cleanupDays int
	tokenTTL    time.Duration
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Token usage reports",
}

var metricsUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show daily token usage",
	Args:  cobra.NoArgs,
	RunE:  runMetricsUsage,
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old metric records",
	Args:  cobra.NoArgs,
	RunE:  runMetricsCleanup,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for --user",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	metricsUsageCmd.Flags().IntVar(&usageDays, "days", 7, "Number of days to report")
	metricsCleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "Keep records for the last N days")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	metricsCmd.AddCommand(metricsUsageCmd)
	metricsCmd.AddCommand(metricsCleanupCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runMetricsUsage(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	usage, err := a.Usage(cmd.Context(), usageDays)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), usage)
	}
	if len(usage) == 0 {
		cmd.Println("No data yet")
	}
	for _, d := range usage {
		cmd.Printf("%s: %d prompt + %d completion tokens, %d executions, %d fallbacks\n",
			d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution, d.Fallbacks)
	}
	return nil
}

func runMetricsCleanup(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	affected, err := a.CleanupMetrics(cmd.Context(), cleanupDays)
	if err != nil {
		return err
	}
	cmd.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	auth, err := httpapi.NewAuthenticator(a.Config().JWTSecret)
	if err != nil {
		return err
	}
	token, err := auth.IssueToken(userID, tokenTTL)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
