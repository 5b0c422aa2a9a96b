package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
	"github.com/slothmock/SlothFinanceTracker/internal/ledger"
)

func openStoreFromFlags(cmd *cobra.Command) (ledger.Store, error) {
	settingsPath, _ := cmd.Flags().GetString("settings")
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	return openPositionStore(settings)
}

func runPositionsList(cmd *cobra.Command, args []string) error {
	store, err := openStoreFromFlags(cmd)
	if err != nil {
		return err
	}
	positions, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	if sortCol, _ := cmd.Flags().GetString("sort"); sortCol != "" {
		desc, _ := cmd.Flags().GetBool("desc")
		domain.SortPositions(positions, sortCol, desc)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Date\tSource\tPool\tT1 Amount\tT2 Amount\tT1 Value\tT2 Value\tTotal Value\tFees")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%.2f\t%.2f\t%.2f\t%.2f\n",
			p.Date, p.Source, p.Pool, p.T1Amount, p.T2Amount, p.T1Value, p.T2Value, p.TotalValue, p.Fees)
	}

	totalValue, totalFees := domain.PositionTotals(positions)
	fmt.Fprintf(w, "\nTOTAL VALUE\t%.2f\n", totalValue)
	fmt.Fprintf(w, "TOTAL FEES\t%.2f\n", totalFees)
	return w.Flush()
}

func runPositionsAdd(cmd *cobra.Command, args []string) error {
	store, err := openStoreFromFlags(cmd)
	if err != nil {
		return err
	}

	date, _ := cmd.Flags().GetString("date")
	source, _ := cmd.Flags().GetString("source")
	pool, _ := cmd.Flags().GetString("pool")
	t1Amount, _ := cmd.Flags().GetFloat64("t1-amount")
	t2Amount, _ := cmd.Flags().GetFloat64("t2-amount")
	t1Value, _ := cmd.Flags().GetFloat64("t1-value")
	t2Value, _ := cmd.Flags().GetFloat64("t2-value")
	fees, _ := cmd.Flags().GetFloat64("fees")

	position := domain.DefiPosition{
		Date:     date,
		Source:   source,
		Pool:     pool,
		T1Amount: t1Amount,
		T2Amount: t2Amount,
		T1Value:  t1Value,
		T2Value:  t2Value,
		Fees:     fees,
	}
	if err := store.Append(cmd.Context(), position); err != nil {
		return err
	}
	fmt.Printf("recorded %s position in %s\n", source, pool)
	return nil
}
