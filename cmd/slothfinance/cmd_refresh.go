package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/slothmock/SlothFinanceTracker/internal/aggregator"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

func runRefresh(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	result := eng.aggregator.RunCycle(ctx, eng.settings.ETHAddress)

	sortCol, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	if sortCol != "" {
		domain.SortHoldings(result.Holdings, sortCol, desc)
		domain.SortHoldings(result.WalletBalances, sortCol, desc)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result, eng.settings.Fiat)
	return nil
}

func printResult(result aggregator.Result, fiat string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "EXCHANGE HOLDINGS")
	fmt.Fprintln(w, "Currency\tBalance\tValue")
	for _, h := range result.Holdings {
		fmt.Fprintf(w, "%s\t%.8f\t%s\n", h.Currency, h.Balance, formatValue(h, fiat))
	}

	fmt.Fprintln(w, "\nWALLET BALANCES")
	fmt.Fprintln(w, "Currency\tBalance\tValue")
	for _, h := range result.WalletBalances {
		fmt.Fprintf(w, "%s\t%.8f\t%s\n", h.Currency, h.Balance, formatValue(h, fiat))
	}

	fmt.Fprintln(w, "\nDEFI POSITIONS")
	fmt.Fprintln(w, "Date\tSource\tPool\tTotal Value\tFees")
	for _, p := range result.Positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\n", p.Date, p.Source, p.Pool, p.TotalValue, p.Fees)
	}

	fmt.Fprintf(w, "\nTOTAL VALUE\t%.2f %s\n", result.TotalValue, fiat)
	fmt.Fprintf(w, "TOTAL FEES\t%.2f %s\n", result.TotalFees, fiat)
	w.Flush()
}

func formatValue(h domain.Holding, fiat string) string {
	if !h.PriceKnown {
		return "price unavailable"
	}
	return fmt.Sprintf("%.2f %s", h.Value, fiat)
}
