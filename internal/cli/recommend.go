package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/nextwatch/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	recommendUser  string
	recommendPlain bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <query>",
	Short: "Get movie recommendations for a free-text request",
	Long: `Ask the server for up to three movie recommendations.

With --user the query is also added to that user's search history.

Examples:
  nextwatch recommend "slow-burn sci-fi with a twist ending"
  nextwatch recommend "90s heist movies" --user alice
  nextwatch recommend "cozy animated films" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVarP(&recommendUser, "user", "u", "", "user id for search history")
	recommendCmd.Flags().BoolVar(&recommendPlain, "plain", false, "no spinner (also implied when stdout is not a terminal)")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := context.Background()

	call := func(ctx context.Context) (*client.Recommendation, error) {
		return apiClient.Recommend(ctx, query, recommendUser)
	}

	var (
		rec *client.Recommendation
		err error
	)
	if recommendPlain || jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
		rec, err = call(ctx)
	} else {
		rec, err = runWithSpinner(ctx, query, call)
	}
	if err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, rec)
	}
	printRecommendation(out, defaultTheme, rec)
	return nil
}
