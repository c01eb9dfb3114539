package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/logger"

	"github.com/spf13/cobra"
)

var (
	userID  string
	asJSON  bool
	appLog  *logger.Logger
	current *app.App
)

var rootCmd = &cobra.Command{
	Use:   "ai-health-advisor",
	Short: "Medical report extraction and personalised health recommendations",
	Long: `Extract text and tables from lab reports, keep a per-user semantic health
history and generate nutrition plans, workout plans and chat answers.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			if err := current.Close(); err != nil {
				appLog.Warn("Failed to close application", "error", err)
			}
		}
		if appLog != nil {
			appLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "User id the command acts for")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// openApp loads configuration and wires the application once per process.
func openApp(ctx context.Context) (*app.App, error) {
	if current != nil {
		return current, nil
	}
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	appLog, err = logger.New(cfg.LogMode, cfg.LogHashSalt)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	current, err = app.Build(ctx, cfg, appLog)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
