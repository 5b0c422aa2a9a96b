// Package domain defines the normalized record shapes shared by every fetcher
// and the aggregation rules that operate on them.
package domain

// DustThreshold is the minimum balance magnitude a holding must exceed to be
// included in aggregation. The boundary is exclusive: a balance of exactly
// DustThreshold is still dust.
const DustThreshold = 0.0001

// Holding is one normalized asset position from any source (exchange account
// or on-chain wallet). Value is Balance times the spot price in the configured
// fiat, recomputed on every fetch and never carried over between cycles.
type Holding struct {
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Value    float64 `json:"value"`

	// PriceKnown is false when the spot price could not be resolved this
	// cycle. Value is then zero, which consumers must read as "unknown",
	// not "worthless".
	PriceKnown bool `json:"price_known"`
}

// IsDust reports whether a balance falls at or below the dust threshold.
func IsDust(balance float64) bool {
	return balance <= DustThreshold
}

// HoldingsValue sums the values of a holdings list. Holdings with an unknown
// price contribute zero.
func HoldingsValue(holdings []Holding) float64 {
	total := 0.0
	for _, h := range holdings {
		total += h.Value
	}
	return total
}
