package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "slothfinance"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Portfolio aggregation and caching engine",
		Version: version,
		Long: `SlothFinance aggregates crypto portfolio data from an exchange account,
an on-chain wallet, and a local DeFi position ledger into one consistent
view, with bounded price caching in front of the quote provider.`,
	}

	rootCmd.PersistentFlags().String("settings", "config/settings.yaml", "Path to the YAML settings file")
	rootCmd.PersistentFlags().String("credentials", "config/credentials.json", "Path to the API credentials file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one aggregation cycle and print the portfolio",
		RunE:  runRefresh,
	}
	refreshCmd.Flags().String("output", "table", "Output format (table|json)")
	refreshCmd.Flags().String("sort", "", "Sort holdings by column (Currency|Balance|Value)")
	refreshCmd.Flags().Bool("desc", false, "Sort descending")

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List recorded DeFi positions with deduplicated totals",
		RunE:  runPositionsList,
	}
	positionsCmd.Flags().String("sort", "", "Sort by column (Date|Pool|Total Value|Fees)")
	positionsCmd.Flags().Bool("desc", false, "Sort descending")

	positionsAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Append a position to the ledger",
		RunE:  runPositionsAdd,
	}
	positionsAddCmd.Flags().String("date", time.Now().Format("2006-01-02"), "Position date")
	positionsAddCmd.Flags().String("source", "", "Protocol the position lives on")
	positionsAddCmd.Flags().String("pool", "", "Pool identifier, e.g. ETH/USDC")
	positionsAddCmd.Flags().Float64("t1-amount", 0, "Token 1 amount")
	positionsAddCmd.Flags().Float64("t2-amount", 0, "Token 2 amount")
	positionsAddCmd.Flags().Float64("t1-value", 0, "Token 1 fiat value")
	positionsAddCmd.Flags().Float64("t2-value", 0, "Token 2 fiat value")
	positionsAddCmd.Flags().Float64("fees", 0, "Accumulated fee revenue")
	positionsAddCmd.MarkFlagRequired("source")
	positionsAddCmd.MarkFlagRequired("pool")
	positionsCmd.AddCommand(positionsAddCmd)

	fiatCmd := &cobra.Command{
		Use:   "fiat",
		Short: "Track fiat cash and card balances",
		RunE:  runFiatShow,
	}
	fiatCashCmd := &cobra.Command{
		Use:   "cash <balance>",
		Short: "Record the current cash balance",
		Args:  cobra.ExactArgs(1),
		RunE:  runFiatCash,
	}
	fiatCmd.AddCommand(fiatCashCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio over HTTP and websocket, refreshing periodically",
		RunE:  runServe,
	}
	serveCmd.Flags().Duration("interval", 5*time.Minute, "Refresh interval")

	rootCmd.AddCommand(refreshCmd, positionsCmd, fiatCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
