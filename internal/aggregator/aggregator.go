// Package aggregator orchestrates the three holdings sources concurrently and
// reduces their results into portfolio totals. A cycle always completes: a
// failed source contributes an empty list, never an error to the caller.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
	"github.com/slothmock/SlothFinanceTracker/internal/ledger"
)

// HoldingsSource lists valued exchange holdings.
type HoldingsSource interface {
	FetchHoldings(ctx context.Context) []domain.Holding
}

// WalletSource resolves on-chain wallet balances.
type WalletSource interface {
	FetchBalances(ctx context.Context, address string, watchlist []config.WatchedToken) []domain.Holding
}

// Notifier receives push-style updates once per completed cycle per data set.
// Implementations must not block: publication is fire-and-continue.
type Notifier interface {
	OnHoldingsUpdated([]domain.Holding)
	OnWalletUpdated([]domain.Holding)
	OnPositionsUpdated([]domain.DefiPosition)
	OnTotalsUpdated(totalValue, totalFees float64)
}

// Observer receives timing hooks for instrumentation.
type Observer interface {
	FetchObserved(source string, took time.Duration)
	CycleCompleted(result Result, took time.Duration)
}

// State is the aggregator's cycle phase.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateAggregating State = "aggregating"
	StatePublished   State = "published"
)

// Result is everything one aggregation cycle produced. Result lists are
// unordered sets; sorting is a presentation concern.
type Result struct {
	CycleID        string                `json:"cycle_id"`
	Holdings       []domain.Holding      `json:"holdings"`
	WalletBalances []domain.Holding      `json:"wallet_balances"`
	Positions      []domain.DefiPosition `json:"positions"`
	TotalValue     float64               `json:"total_value"`
	TotalFees      float64               `json:"total_fees"`
	CompletedAt    time.Time             `json:"completed_at"`
}

// Aggregator runs aggregation cycles.
type Aggregator struct {
	exchange  HoldingsSource
	wallet    WalletSource
	positions ledger.Store
	watchlist []config.WatchedToken
	notifier  Notifier
	observer  Observer

	mu    sync.Mutex
	state State
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNotifier sets the publication target.
func WithNotifier(n Notifier) Option {
	return func(a *Aggregator) { a.notifier = n }
}

// WithObserver sets the instrumentation hooks.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// New creates an aggregator over the three sources.
func New(exchange HoldingsSource, wallet WalletSource, positions ledger.Store, watchlist []config.WatchedToken, opts ...Option) *Aggregator {
	a := &Aggregator{
		exchange:  exchange,
		wallet:    wallet,
		positions: positions,
		watchlist: watchlist,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current cycle phase.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Aggregator) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// RunCycle fetches all three sources concurrently, computes totals over
// whatever completed, publishes the results and returns them. There is no
// retry: partial data reaches Published and the next trigger starts fresh.
func (a *Aggregator) RunCycle(ctx context.Context, address string) Result {
	start := time.Now()
	a.setState(StateFetching)
	defer a.setState(StateIdle)

	var (
		holdings  []domain.Holding
		wallet    []domain.Holding
		positions []domain.DefiPosition
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer boundary("exchange")
		holdings = a.timed("exchange", func() []domain.Holding {
			return a.exchange.FetchHoldings(ctx)
		})
	}()
	go func() {
		defer wg.Done()
		defer boundary("wallet")
		wallet = a.timed("wallet", func() []domain.Holding {
			return a.wallet.FetchBalances(ctx, address, a.watchlist)
		})
	}()
	go func() {
		defer wg.Done()
		defer boundary("positions")
		fetchStart := time.Now()
		loaded, err := a.positions.Load(ctx)
		a.observe("positions", time.Since(fetchStart))
		if err != nil {
			log.Error().Err(err).Msg("position ledger load failed")
			return
		}
		positions = loaded
	}()
	wg.Wait()

	a.setState(StateAggregating)
	totals := ledger.ComputeTotals(positions)
	result := Result{
		CycleID:        uuid.NewString(),
		Holdings:       holdings,
		WalletBalances: wallet,
		Positions:      positions,
		TotalValue:     domain.HoldingsValue(holdings) + domain.HoldingsValue(wallet) + totals.TotalValue,
		TotalFees:      totals.TotalFees,
		CompletedAt:    time.Now(),
	}

	a.setState(StatePublished)
	a.publish(result)
	if a.observer != nil {
		a.observer.CycleCompleted(result, time.Since(start))
	}
	log.Info().Str("cycle", result.CycleID).
		Int("holdings", len(result.Holdings)).
		Int("wallet", len(result.WalletBalances)).
		Int("positions", len(result.Positions)).
		Float64("total_value", result.TotalValue).
		Float64("total_fees", result.TotalFees).
		Dur("took", time.Since(start)).
		Msg("aggregation cycle complete")
	return result
}

// publish pushes the cycle output to the notifier without blocking the
// caller.
func (a *Aggregator) publish(result Result) {
	if a.notifier == nil {
		return
	}
	go func() {
		a.notifier.OnHoldingsUpdated(result.Holdings)
		a.notifier.OnWalletUpdated(result.WalletBalances)
		a.notifier.OnPositionsUpdated(result.Positions)
		a.notifier.OnTotalsUpdated(result.TotalValue, result.TotalFees)
	}()
}

func (a *Aggregator) timed(source string, fetch func() []domain.Holding) []domain.Holding {
	start := time.Now()
	out := fetch()
	a.observe(source, time.Since(start))
	return out
}

func (a *Aggregator) observe(source string, took time.Duration) {
	if a.observer != nil {
		a.observer.FetchObserved(source, took)
	}
}

// boundary is the outer guard of each sub-fetch: an unexpected panic in one
// source must not blank the whole cycle.
func boundary(source string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("source", source).
			Msg("sub-fetch panicked, continuing with empty result")
	}
}
