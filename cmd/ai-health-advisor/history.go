package main

import (
	"errors"
	"os"

	"ai-health-advisor/internal/history"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyOrder string
	historyQuery string
	historyText  string
	historyType  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and extend the health history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List history records, ranked by the configured ordering",
	Args:  cobra.NoArgs,
	// --order overrides HISTORY_ORDER for this invocation.
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if historyOrder == "" {
			return nil
		}
		if _, err := history.ParseOrdering(historyOrder); err != nil {
			return err
		}
		return os.Setenv("HISTORY_ORDER", historyOrder)
	},
	RunE: runHistoryList,
}

var historyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a free-text record",
	Args:  cobra.NoArgs,
	RunE:  runHistoryAdd,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum records to return")
	historyListCmd.Flags().StringVar(&historyOrder, "order", "", "relevance or chronological (default from config)")
	historyListCmd.Flags().StringVarP(&historyQuery, "query", "q", "", "Rank by similarity to this text instead")
	historyAddCmd.Flags().StringVarP(&historyType, "type", "t", string(history.ReportSymptoms), "Report type")
	historyAddCmd.Flags().StringVar(&historyText, "text", "", "Record text")
	historyAddCmd.MarkFlagRequired("text")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyAddCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	records := a.History(cmd.Context(), userID, historyQuery, historyLimit)
	if asJSON {
		return printJSON(cmd.OutOrStdout(), records)
	}
	cmd.Print(history.BuildContext(records))
	cmd.Println()
	return nil
}

func runHistoryAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	if !a.AddHistory(cmd.Context(), userID, history.ReportType(historyType), historyText) {
		return errors.New("record was not stored, see log for details")
	}
	cmd.Println("Record stored.")
	return nil
}
