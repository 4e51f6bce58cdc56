package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/nextwatch/internal/client"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved recommendation",
	Long: `Show a saved recommendation record with all of its movies.

Examples:
  nextwatch show 0192f7a4-5d2e-7c1a-9b3e-6f0a1c2d3e4f
  nextwatch show 65a1b2c3d4e5f6a7b8c9d0e1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rec, err := apiClient.GetRecommendation(ctx, args[0])
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("recommendation %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("get recommendation: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, rec)
	}
	printRecord(out, defaultTheme, rec)
	return nil
}
