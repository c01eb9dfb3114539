package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/history"

	"github.com/spf13/cobra"
)

var ingestType string

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text and tables from a report without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Archive a report, extract it and append it to the user's history",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", string(history.ReportBlood), "Report type (Blood, Scan, Symptoms, ...)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	res := a.Extract(cmd.Context(), args[0])
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}

	cmd.Println(res.Text)
	for i, t := range res.Tables {
		cmd.Printf("\nTable %d (%d rows)\n", i+1, len(t.Rows))
		for _, row := range t.Rows {
			cmd.Printf("  %v\n", row)
		}
	}
	for _, img := range res.Images {
		cmd.Printf("\nImage: %s\n", img)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	res, err := a.IngestReport(cmd.Context(), userID, filepath.Base(args[0]), f, history.ReportType(ingestType))
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printIngest(cmd, res)
	return nil
}

func printIngest(cmd *cobra.Command, res app.IngestResult) {
	cmd.Printf("Archived: %s\n", res.Report.Path)
	cmd.Printf("Extracted %d characters, %d tables, %d images\n",
		len(res.Extraction.Text), len(res.Extraction.Tables), len(res.Extraction.Images))
	cmd.Printf("Stored in history: %t\n", res.Stored)
	if res.ProfileUpdated {
		cmd.Println("Profile blood report updated")
	}
}
