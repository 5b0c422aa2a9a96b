package domain

// Transaction types used for synthetic entries that record balance changes as
// auditable deltas, distinct from user-entered income and expenses.
const (
	TxTypeCashUpdate  = "Cash Update"
	TxTypeCardsUpdate = "Cards Update"
)

// Transaction is one fiat ledger entry. Amount sign encodes direction: income
// positive, expense negative.
type Transaction struct {
	Source      string  `json:"source"`
	Date        string  `json:"date"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
}

// Synthetic reports whether the transaction was auto-generated to log a
// balance change rather than entered by the user.
func (t Transaction) Synthetic() bool {
	return t.Type == TxTypeCashUpdate || t.Type == TxTypeCardsUpdate
}

// Card is one tracked card balance.
type Card struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// CardsTotal sums card balances.
func CardsTotal(cards []Card) float64 {
	total := 0.0
	for _, c := range cards {
		total += c.Balance
	}
	return total
}
