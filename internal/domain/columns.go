package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Column accessor tables map display column names to field accessors. They are
// built once at package init so display-layer sorting never needs reflection.

// HoldingColumns lists holding table columns in render order.
var HoldingColumns = []string{"Currency", "Balance", "Value"}

// PositionColumns lists position table columns in render order.
var PositionColumns = []string{
	"Date", "Source", "Pool",
	"T1 Amount", "T2 Amount",
	"T1 Value", "T2 Value",
	"Total Value", "Fees",
}

var holdingKeys = map[string]func(Holding) string{
	"Currency": func(h Holding) string { return h.Currency },
	"Balance":  func(h Holding) string { return strconv.FormatFloat(h.Balance, 'f', 4, 64) },
	"Value":    func(h Holding) string { return strconv.FormatFloat(h.Value, 'f', 2, 64) },
}

var positionKeys = map[string]func(DefiPosition) string{
	"Date":        func(p DefiPosition) string { return p.Date },
	"Source":      func(p DefiPosition) string { return p.Source },
	"Pool":        func(p DefiPosition) string { return p.Pool },
	"T1 Amount":   func(p DefiPosition) string { return strconv.FormatFloat(p.T1Amount, 'f', 4, 64) },
	"T2 Amount":   func(p DefiPosition) string { return strconv.FormatFloat(p.T2Amount, 'f', 4, 64) },
	"T1 Value":    func(p DefiPosition) string { return strconv.FormatFloat(p.T1Value, 'f', 2, 64) },
	"T2 Value":    func(p DefiPosition) string { return strconv.FormatFloat(p.T2Value, 'f', 2, 64) },
	"Total Value": func(p DefiPosition) string { return strconv.FormatFloat(p.TotalValue, 'f', 2, 64) },
	"Fees":        func(p DefiPosition) string { return strconv.FormatFloat(p.Fees, 'f', 2, 64) },
}

// SortHoldings orders holdings in place by the named column. Numeric columns
// compare numerically, everything else lexically. Unknown columns are a no-op:
// result lists are unordered sets and sorting is purely presentational.
func SortHoldings(holdings []Holding, column string, descending bool) {
	key, ok := holdingKeys[column]
	if !ok {
		return
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		less := compareKeys(key(holdings[i]), key(holdings[j]))
		if descending {
			return !less
		}
		return less
	})
}

// SortPositions orders positions in place by the named column.
func SortPositions(positions []DefiPosition, column string, descending bool) {
	key, ok := positionKeys[column]
	if !ok {
		return
	}
	sort.SliceStable(positions, func(i, j int) bool {
		less := compareKeys(key(positions[i]), key(positions[j]))
		if descending {
			return !less
		}
		return less
	})
}

func compareKeys(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

var nonNumeric = regexp.MustCompile(`[^\d.-]`)

// ParseAmount parses a monetary amount, tolerating currency symbols, commas
// and surrounding whitespace ("$1,234.50" -> 1234.5).
func ParseAmount(s string) (float64, error) {
	cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(s), "")
	return strconv.ParseFloat(cleaned, 64)
}
