package domain

// DefiPosition is one manually recorded snapshot of a yield-farming position.
// TotalValue is derived from the two token legs on load; the stored column, if
// any, is never trusted.
type DefiPosition struct {
	Date       string  `json:"date"`
	Source     string  `json:"source"`
	Pool       string  `json:"pool"`
	T1Amount   float64 `json:"t1_amount"`
	T2Amount   float64 `json:"t2_amount"`
	T1Value    float64 `json:"t1_value"`
	T2Value    float64 `json:"t2_value"`
	TotalValue float64 `json:"total_value"`
	Fees       float64 `json:"fees"`
}

// Normalize recomputes the derived total from the token legs.
func (p *DefiPosition) Normalize() {
	p.TotalValue = p.T1Value + p.T2Value
}

// PositionTotals aggregates a loaded position set.
//
// Value counts each pool once: multiple historical snapshots of the same pool
// collapse to the first one seen, since they describe the same live position.
// Fees count every row, deduplicated or not, because fee revenue is cumulative
// across snapshots. The asymmetry is deliberate.
func PositionTotals(positions []DefiPosition) (totalValue, totalFees float64) {
	seen := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		if _, dup := seen[p.Pool]; !dup {
			seen[p.Pool] = struct{}{}
			totalValue += p.TotalValue
		}
		totalFees += p.Fees
	}
	return totalValue, totalFees
}
