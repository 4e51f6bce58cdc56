package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <userId>",
	Short: "List a user's saved recommendations",
	Long: `List the most recent recommendation records saved for a user, newest first.

Use "anonymous" for recommendations made without --user.

Examples:
  nextwatch list alice
  nextwatch list anonymous --json`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var historyCmd = &cobra.Command{
	Use:   "history <userId>",
	Short: "Show a user's recent searches",
	Long: `Show the most recent queries a user made, newest first.

Examples:
  nextwatch history alice`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	records, err := apiClient.Recommendations(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list recommendations: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No recommendations found.")
		return nil
	}

	fmt.Fprintf(out, "Recommendations (%d):\n\n", len(records))
	for _, rec := range records {
		fmt.Fprintf(out, "- %s  %s  (%d movies)\n", formatTime(rec.CreatedAt), rec.UserQuery, len(rec.Recommendations))
		if verbose {
			fmt.Fprintf(out, "  id: %s\n", rec.ID)
			for _, m := range rec.Recommendations {
				fmt.Fprintf(out, "  · %s\n", movieHeading(m))
			}
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	entries, err := apiClient.History(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No searches found.")
		return nil
	}

	fmt.Fprintf(out, "Searches (%d):\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(out, "- %s  %s\n", formatTime(e.Timestamp), e.Query)
	}
	return nil
}
