package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

func tempStore(t *testing.T) *CSVStore {
	t.Helper()
	return NewCSVStore(filepath.Join(t.TempDir(), "defi_positions.csv"))
}

func TestLoadCreatesFileWithHeader(t *testing.T) {
	store := tempStore(t)

	positions, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)

	raw, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Source,Pool,T1 Amount,T2 Amount,T1 Value,T2 Value,Fees\n", string(raw))

	// Second load over the now-existing file is a no-op.
	_, err = store.Load(context.Background())
	require.NoError(t, err)
}

func TestAppendLoadRoundTrip(t *testing.T) {
	store := tempStore(t)

	in := domain.DefiPosition{
		Date:     "14-02-2026",
		Source:   "Aerodrome",
		Pool:     "WETH/USDC",
		T1Amount: 0.75,
		T2Amount: 1500.5,
		T1Value:  1800.25,
		T2Value:  1500.5,
		Fees:     12.34,
	}
	require.NoError(t, store.Append(context.Background(), in))

	positions, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	out := positions[0]
	assert.Equal(t, in.Pool, out.Pool)
	assert.Equal(t, in.Fees, out.Fees)
	assert.Equal(t, in.T1Value+in.T2Value, out.TotalValue)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	store := tempStore(t)
	content := "Date,Source,Pool,T1 Amount,T2 Amount,T1 Value,T2 Value,Fees\n" +
		"01-01-2026,Uni,A,1,2,100,50,5\n" +
		"02-01-2026,Uni,B,not-a-number,2,100,50,5\n" +
		"03-01-2026,Uni,C\n" +
		"04-01-2026,Uni,D,1,2,30,20,2\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(store.path), 0o755))
	require.NoError(t, os.WriteFile(store.path, []byte(content), 0o644))

	positions, err := store.Load(context.Background())
	require.NoError(t, err)

	// The two bad rows are skipped; the load itself succeeds.
	require.Len(t, positions, 2)
	assert.Equal(t, "A", positions[0].Pool)
	assert.Equal(t, "D", positions[1].Pool)
}

func TestLoadParsesCurrencyFormatting(t *testing.T) {
	store := tempStore(t)
	content := "Date,Source,Pool,T1 Amount,T2 Amount,T1 Value,T2 Value,Fees\n" +
		`01-01-2026,Uni,A,1.5,2,"$1,000.00",$500.00,$5.50` + "\n"
	require.NoError(t, os.MkdirAll(filepath.Dir(store.path), 0o755))
	require.NoError(t, os.WriteFile(store.path, []byte(content), 0o644))

	positions, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 1500.0, positions[0].TotalValue)
	assert.Equal(t, 5.5, positions[0].Fees)
}

func TestComputeTotalsDedupRule(t *testing.T) {
	totals := ComputeTotals([]domain.DefiPosition{
		{Pool: "A", TotalValue: 100, Fees: 5},
		{Pool: "A", TotalValue: 999, Fees: 5},
		{Pool: "B", TotalValue: 50, Fees: 2},
	})
	assert.Equal(t, 150.0, totals.TotalValue)
	assert.Equal(t, 12.0, totals.TotalFees)
}

func TestAppendRecomputesDerivedTotal(t *testing.T) {
	store := tempStore(t)

	in := domain.DefiPosition{
		Date: "01-01-2026", Source: "Uni", Pool: "A",
		T1Value: 10, T2Value: 20,
		TotalValue: 12345, // inconsistent caller value, must not survive
	}
	require.NoError(t, store.Append(context.Background(), in))

	positions, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 30.0, positions[0].TotalValue)
}
