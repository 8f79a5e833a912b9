package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arthasutra",
	Short: "Investment portfolio tracker for Indian equities",
	Long: `Arthasutra backend CLI

Tracks portfolios of NSE/BSE listed equities: holdings import, EOD price
history, live quotes and rule-based position recommendations.

Usage:
  go run ./cmd/arthasutra [command]

Examples:
  go run ./cmd/arthasutra api
  go run ./cmd/arthasutra fetch-eod NSE:HDFCBANK --start 2025-01-01 --end 2025-12-31`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
