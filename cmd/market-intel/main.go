package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantitva/market-intel/cmd/market-intel/commands"
	"github.com/quantitva/market-intel/logger"
)

var rootCmd = &cobra.Command{
	Use:   "market-intel",
	Short: "Market-intel - market research scheduling service",
	Long: `Market-intel - backend for recurring market research.

Tracks recurring research schedules, ingests execution reports from the
automation engine, and serves parsed reports to the dashboard.

Examples:
  market-intel serve            # Start the HTTP API server
  market-intel migrate          # Apply pending database migrations
  market-intel version          # Show build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (TOML)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
