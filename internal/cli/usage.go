package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is up and its store is reachable",
	RunE:  runHealth,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show in-memory server statistics collected since the last restart:
LLM call timings and token usage, store timings, and event counters.

Examples:
  nextwatch stats
  nextwatch stats --json`,
	RunE: runStats,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	h, err := apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	fmt.Fprintf(out, "%s %s\n", defaultTheme.completedStyle().Render("live "), h.Message)

	ready, err := apiClient.Ready(ctx)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", defaultTheme.errorStyle().Render("ready"), err)
		return fmt.Errorf("server at %s is not ready", apiClient.BaseURL())
	}
	fmt.Fprintf(out, "%s %s\n", defaultTheme.completedStyle().Render("ready"), ready.Message)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	stats, err := apiClient.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, stats)
	}
	printServerStats(out, stats)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(w io.Writer, stats *metrics.Snapshot) {
	fmt.Fprintf(w, "Server Statistics (in-memory, since restart)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", stats.UptimeSeconds)

	sections := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"LLM Generate", stats.LLMGenerate},
		{"Normalize", stats.Normalize},
		{"DB Write", stats.DBWrite},
		{"DB Query", stats.DBQuery},
	}
	for _, s := range sections {
		if s.op == nil {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.name)
		printOpStats(w, s.op)
		printTokenStats(w, s.op)
	}

	if len(stats.Events) > 0 {
		fmt.Fprintf(w, "\nEvents:\n")
		names := make([]string, 0, len(stats.Events))
		for name := range stats.Events {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s %d\n", name, stats.Events[name])
		}
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Errors: %d, Total: %dms\n", op.Count, op.Errors, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printTokenStats displays token statistics if available.
func printTokenStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Fprintf(w, "  Tokens In:  %d total\n", *op.TotalInputTokens)
	fmt.Fprintf(w, "  Tokens Out: %d total\n", *op.TotalOutputTokens)
}
