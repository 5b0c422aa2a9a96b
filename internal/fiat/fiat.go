// Package fiat keeps the cash, card and transaction ledger. Every balance
// mutation is recorded as a synthetic transaction carrying the signed delta,
// so the transaction list stays a complete audit trail.
package fiat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

const dateLayout = "02-01-2006"

// Ledger is the durable fiat state. Mutations update memory only; Save is an
// explicit, awaitable operation the caller sequences, so "every mutation is
// durably recorded" holds without fire-and-forget writes racing each other.
type Ledger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time

	cash         float64
	cards        []domain.Card
	transactions []domain.Transaction
}

// fileState is the on-disk JSON shape.
type fileState struct {
	Cash         float64              `json:"cash"`
	Cards        []domain.Card        `json:"cards"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock injects the time source used to date synthetic transactions.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger backed by the JSON file at path.
func New(path string, opts ...Option) *Ledger {
	l := &Ledger{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the ledger file, creating an empty one on first use.
func (l *Ledger) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("read fiat ledger: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("parse fiat ledger: %w", err)
	}
	l.cash = state.Cash
	l.cards = state.Cards
	l.transactions = state.Transactions
	return nil
}

// Save writes the current state to disk.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

func (l *Ledger) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create fiat ledger dir: %w", err)
	}
	raw, err := json.MarshalIndent(fileState{
		Cash:         l.cash,
		Cards:        l.cards,
		Transactions: l.transactions,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fiat ledger: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("write fiat ledger: %w", err)
	}
	return nil
}

// AddTransaction appends a user-entered transaction.
func (l *Ledger) AddTransaction(tx domain.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactions = append(l.transactions, tx)
}

// UpdateCash sets the cash balance and records the signed delta as a
// synthetic transaction. The running total accumulates deltas, not balances,
// so repeated updates never double-count.
func (l *Ledger) UpdateCash(newBalance float64) domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	delta := newBalance - l.cash
	tx := domain.Transaction{
		Source:      "Cash",
		Date:        l.now().Format(dateLayout),
		Name:        "Cash Update",
		Description: fmt.Sprintf("Updated cash balance to %.2f", newBalance),
		Amount:      delta,
		Type:        domain.TxTypeCashUpdate,
	}
	l.transactions = append(l.transactions, tx)
	l.cash = newBalance
	return tx
}

// UpdateCards replaces the card set and records the total delta as a
// synthetic transaction.
func (l *Ledger) UpdateCards(cards []domain.Card) domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	newTotal := domain.CardsTotal(cards)
	delta := newTotal - domain.CardsTotal(l.cards)
	tx := domain.Transaction{
		Source:      "Cards",
		Date:        l.now().Format(dateLayout),
		Name:        "Card Balances Update",
		Description: fmt.Sprintf("Updated total card balance to %.2f", newTotal),
		Amount:      delta,
		Type:        domain.TxTypeCardsUpdate,
	}
	l.transactions = append(l.transactions, tx)
	l.cards = append([]domain.Card(nil), cards...)
	return tx
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// CardsTotal returns the summed card balances.
func (l *Ledger) CardsTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.CardsTotal(l.cards)
}

// TotalFunds returns cash plus cards.
func (l *Ledger) TotalFunds() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash + domain.CardsTotal(l.cards)
}

// Transactions returns a copy of the transaction list.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Transaction(nil), l.transactions...)
}
