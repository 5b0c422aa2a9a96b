// Package ledger round-trips manually entered DeFi positions to durable
// storage and computes their deduplicated totals. The CSV store is the
// canonical format; a Postgres store exists for setups that already run one.
package ledger

import (
	"context"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

// Store is the durable position store. Load returns every recorded snapshot;
// Append adds one. Stores are append-only: deletion is not a core concern.
type Store interface {
	Load(ctx context.Context) ([]domain.DefiPosition, error)
	Append(ctx context.Context, position domain.DefiPosition) error
}

// Totals is the aggregate of a loaded position set.
type Totals struct {
	TotalValue float64 `json:"total_value"`
	TotalFees  float64 `json:"total_fees"`
}

// ComputeTotals applies the dedup-by-pool value rule and the count-everything
// fee rule.
func ComputeTotals(positions []domain.DefiPosition) Totals {
	value, fees := domain.PositionTotals(positions)
	return Totals{TotalValue: value, TotalFees: fees}
}
