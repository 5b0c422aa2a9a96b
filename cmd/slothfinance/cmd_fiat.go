package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func runFiatShow(cmd *cobra.Command, args []string) error {
	l, err := openFiatLedger(cmd)
	if err != nil {
		return err
	}
	fmt.Printf("cash:  %.2f\ncards: %.2f\ntotal: %.2f\n", l.Cash(), l.CardsTotal(), l.TotalFunds())
	return nil
}

func runFiatCash(cmd *cobra.Command, args []string) error {
	balance, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("parse balance %q: %w", args[0], err)
	}

	l, err := openFiatLedger(cmd)
	if err != nil {
		return err
	}
	tx := l.UpdateCash(balance)
	if err := l.Save(); err != nil {
		return err
	}
	fmt.Printf("recorded cash update of %+.2f, balance now %.2f\n", tx.Amount, l.Cash())
	return nil
}
