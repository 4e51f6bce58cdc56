// Package cli provides the command-line interface for nextwatch.
package cli

import (
	"github.com/raphaelgruber/nextwatch/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	jsonOut   bool
	serverURL string

	// Global API client
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nextwatch",
	Short: "Movie recommendations from the Next Watch server",
	Long: `nextwatch asks a Next Watch server for movie recommendations and browses
past searches and results.

The server URL defaults to $NEXTWATCH_SERVER_URL or http://localhost:3001.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $NEXTWATCH_SERVER_URL or "+client.DefaultServerURL+")")

	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
}

