package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable time source for deterministic TTL tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func countingFetch(calls *int64, price float64, err error) QuoteFunc {
	return func(ctx context.Context, symbol string) (float64, error) {
		atomic.AddInt64(calls, 1)
		return price, err
	}
}

func TestGetOrFetchWithinTTLPerformsNoFetch(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var calls int64
	c := New(countingFetch(&calls, 42.5, nil), WithClock(clock.now))

	price, ok := c.GetOrFetch(context.Background(), "BTC")
	require.True(t, ok)
	assert.Equal(t, 42.5, price)
	assert.EqualValues(t, 1, calls)

	// A second call inside the TTL window must hit the cache.
	clock.advance(299 * time.Second)
	price, ok = c.GetOrFetch(context.Background(), "BTC")
	require.True(t, ok)
	assert.Equal(t, 42.5, price)
	assert.EqualValues(t, 1, calls, "no network call expected inside TTL")
}

func TestGetOrFetchAfterExpiryFetchesExactlyOnce(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var calls int64
	c := New(countingFetch(&calls, 7, nil), WithClock(clock.now))

	_, ok := c.GetOrFetch(context.Background(), "ETH")
	require.True(t, ok)

	clock.advance(300 * time.Second)
	_, ok = c.GetOrFetch(context.Background(), "ETH")
	require.True(t, ok)
	assert.EqualValues(t, 2, calls, "expiry should trigger exactly one refetch")
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	var calls int64
	release := make(chan struct{})
	fetch := func(ctx context.Context, symbol string) (float64, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return 42.5, nil
	}
	c := New(fetch)

	const callers = 8
	var wg sync.WaitGroup
	prices := make([]float64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			price, ok := c.GetOrFetch(context.Background(), "BTC")
			assert.True(t, ok)
			prices[i] = price
		}(i)
	}

	// let all callers reach the miss path before the fetch completes
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls, "concurrent misses should share one network call")
	for i := 0; i < callers; i++ {
		assert.Equal(t, 42.5, prices[i])
	}
}

func TestFetchFailureIsNotCached(t *testing.T) {
	var calls int64
	c := New(countingFetch(&calls, 0, errors.New("boom")))

	price, ok := c.GetOrFetch(context.Background(), "DOGE")
	assert.False(t, ok)
	assert.Zero(t, price)

	// Next call retries instead of serving the failure.
	c.GetOrFetch(context.Background(), "DOGE")
	assert.EqualValues(t, 2, calls)
	assert.EqualValues(t, 2, c.Stats().Failures)
}

func TestInvalidPricesRejected(t *testing.T) {
	for _, bad := range []float64{0, -5, math.Inf(1), math.NaN()} {
		var calls int64
		c := New(countingFetch(&calls, bad, nil))
		_, ok := c.GetOrFetch(context.Background(), "X")
		assert.False(t, ok, "price %v must not be served", bad)
		assert.Zero(t, c.Len())
	}
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	var calls int64
	c := New(countingFetch(&calls, 1, nil), WithCapacity(2))

	ctx := context.Background()
	c.GetOrFetch(ctx, "A")
	c.GetOrFetch(ctx, "B")
	c.GetOrFetch(ctx, "A") // A is now most recently used
	c.GetOrFetch(ctx, "C") // evicts B

	assert.Equal(t, 2, c.Len())
	assert.EqualValues(t, 1, c.Stats().Evictions)

	calls = 0
	c.GetOrFetch(ctx, "A")
	assert.EqualValues(t, 0, calls, "A should have survived eviction")
	c.GetOrFetch(ctx, "B")
	assert.EqualValues(t, 1, calls, "B should have been evicted")
}

func TestStoreTierConsultedOnLocalMiss(t *testing.T) {
	store := &memStore{prices: map[string]float64{"BTC": 123.4}}
	fetch := func(ctx context.Context, symbol string) (float64, error) {
		return 0, errors.New("quote service should not be reached")
	}
	c := New(fetch, WithStore(store))

	price, ok := c.GetOrFetch(context.Background(), "BTC")
	require.True(t, ok)
	assert.Equal(t, 123.4, price)
}

func TestSuccessfulFetchWritesThroughStore(t *testing.T) {
	store := &memStore{prices: map[string]float64{}}
	var calls int64
	c := New(countingFetch(&calls, 55, nil), WithStore(store))

	_, ok := c.GetOrFetch(context.Background(), "SOL")
	require.True(t, ok)
	assert.Equal(t, 55.0, store.prices["SOL"])
}

// memStore is an in-memory PriceStore for tests.
type memStore struct {
	prices map[string]float64
	err    error
}

func (m *memStore) Get(ctx context.Context, symbol string) (float64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	p, ok := m.prices[symbol]
	return p, ok, nil
}

func (m *memStore) Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.prices[symbol] = price
	return nil
}

func TestStoreErrorFallsBackToFetch(t *testing.T) {
	store := &memStore{err: fmt.Errorf("redis down")}
	var calls int64
	c := New(countingFetch(&calls, 9, nil), WithStore(store))

	price, ok := c.GetOrFetch(context.Background(), "ETH")
	require.True(t, ok)
	assert.Equal(t, 9.0, price)
	assert.EqualValues(t, 1, calls)
}
