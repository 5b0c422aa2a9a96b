package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slothmock/SlothFinanceTracker/internal/cache"
	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

const (
	// NativeSymbol is the chain-native asset tracked alongside the
	// watchlist.
	NativeSymbol = "ETH"
	// NativeDivisor converts the native raw balance (wei) to whole units.
	NativeDivisor = 1e18
)

// Fetcher resolves wallet balances for the native asset plus every
// watch-listed token, issuing the per-asset explorer requests concurrently.
// One failing asset never blocks the others.
//
// Resolved holdings are kept in a service-local TTL cache keyed by asset name,
// so repeated calls inside the TTL window skip the explorer entirely.
type Fetcher struct {
	client *Client
	prices *cache.PriceCache

	mu       sync.Mutex
	resolved map[string]cachedHolding
	ttl      time.Duration
	now      func() time.Time
}

type cachedHolding struct {
	holding    domain.Holding
	insertedAt time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithClock injects the time source for the holding cache.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithHoldingTTL overrides how long a resolved holding is reused.
func WithHoldingTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) { f.ttl = ttl }
}

// NewFetcher creates a balance fetcher.
func NewFetcher(client *Client, prices *cache.PriceCache, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   client,
		prices:   prices,
		resolved: make(map[string]cachedHolding),
		ttl:      cache.DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// asset is one unit of the fan-out: a name, a divisor and a way to get the
// raw balance.
type asset struct {
	name    string
	divisor float64
	fetch   func(ctx context.Context) (float64, error)
}

// FetchBalances resolves a holding per tracked asset. A missing API key
// short-circuits to an empty result; individual request failures drop only
// their own asset.
func (f *Fetcher) FetchBalances(ctx context.Context, address string, watchlist []config.WatchedToken) []domain.Holding {
	if !f.client.HasKey() {
		log.Error().Msg("explorer API key is missing, skipping wallet balances")
		return nil
	}

	assets := make([]asset, 0, len(watchlist)+1)
	assets = append(assets, asset{
		name:    NativeSymbol,
		divisor: NativeDivisor,
		fetch: func(ctx context.Context) (float64, error) {
			return f.client.NativeBalance(ctx, address)
		},
	})
	for _, token := range watchlist {
		contract := token.ContractAddress
		assets = append(assets, asset{
			name:    token.Name,
			divisor: token.Decimals,
			fetch: func(ctx context.Context) (float64, error) {
				return f.client.TokenBalance(ctx, contract, address)
			},
		})
	}

	results := make([]*domain.Holding, len(assets))
	var wg sync.WaitGroup
	for i, a := range assets {
		wg.Add(1)
		go func(i int, a asset) {
			defer wg.Done()
			results[i] = f.fetchAsset(ctx, a)
		}(i, a)
	}
	wg.Wait()

	holdings := make([]domain.Holding, 0, len(results))
	for _, h := range results {
		if h != nil {
			holdings = append(holdings, *h)
		}
	}
	return holdings
}

func (f *Fetcher) fetchAsset(ctx context.Context, a asset) *domain.Holding {
	if h, ok := f.lookup(a.name); ok {
		return &h
	}

	raw, err := a.fetch(ctx)
	if err != nil {
		log.Error().Err(err).Str("asset", a.name).Msg("balance fetch failed")
		return nil
	}

	balance := raw / a.divisor
	price, known := f.prices.GetOrFetch(ctx, a.name)
	h := domain.Holding{
		Currency:   a.name,
		Balance:    balance,
		Value:      balance * price,
		PriceKnown: known,
	}
	// Only fully resolved holdings are reused: caching an unknown price
	// would suppress the retry the price cache deliberately allows.
	if known {
		f.remember(h)
	}
	return &h
}

func (f *Fetcher) lookup(name string) (domain.Holding, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.resolved[name]
	if !ok || f.now().Sub(entry.insertedAt) >= f.ttl {
		delete(f.resolved, name)
		return domain.Holding{}, false
	}
	return entry.holding, true
}

func (f *Fetcher) remember(h domain.Holding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved[h.Currency] = cachedHolding{holding: h, insertedAt: f.now()}
}
