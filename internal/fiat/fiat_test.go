package fiat

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(
		filepath.Join(t.TempDir(), "finances.json"),
		WithClock(func() time.Time { return time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC) }),
	)
}

func TestLoadCreatesEmptyFile(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Load())
	assert.Zero(t, l.Cash())
	assert.Empty(t, l.Transactions())
	assert.FileExists(t, l.path)
}

func TestUpdateCashRecordsDelta(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Load())

	tx := l.UpdateCash(100)
	assert.Equal(t, 100.0, tx.Amount)
	assert.Equal(t, domain.TxTypeCashUpdate, tx.Type)
	assert.Equal(t, "14-02-2026", tx.Date)

	// Repeated updates carry only the change, so the audit trail sums to
	// the current balance instead of double-counting.
	tx = l.UpdateCash(130)
	assert.Equal(t, 30.0, tx.Amount)
	tx = l.UpdateCash(90)
	assert.Equal(t, -40.0, tx.Amount)

	assert.Equal(t, 90.0, l.Cash())
	sum := 0.0
	for _, entry := range l.Transactions() {
		sum += entry.Amount
	}
	assert.Equal(t, l.Cash(), sum)
}

func TestUpdateCardsRecordsDelta(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Load())

	tx := l.UpdateCards([]domain.Card{{Name: "Debit", Balance: 50}, {Name: "Credit", Balance: 25}})
	assert.Equal(t, 75.0, tx.Amount)
	assert.Equal(t, domain.TxTypeCardsUpdate, tx.Type)

	tx = l.UpdateCards([]domain.Card{{Name: "Debit", Balance: 40}})
	assert.Equal(t, -35.0, tx.Amount)
	assert.Equal(t, 40.0, l.CardsTotal())
	assert.Equal(t, l.Cash()+40.0, l.TotalFunds())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Load())

	l.UpdateCash(200)
	l.AddTransaction(domain.Transaction{
		Source: "Bank", Date: "14-02-2026", Name: "Groceries",
		Description: "weekly shop", Amount: -42.5, Type: "Expense",
	})
	require.NoError(t, l.Save())

	reloaded := New(l.path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 200.0, reloaded.Cash())
	require.Len(t, reloaded.Transactions(), 2)
	assert.True(t, reloaded.Transactions()[0].Synthetic())
	assert.Equal(t, -42.5, reloaded.Transactions()[1].Amount)
}
