// Package cache implements the bounded price cache that shields the quote
// service from redundant calls. Entries expire after a TTL and the cache
// evicts least-recently-used symbols once its capacity is reached.
package cache

import (
	"container/list"
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// QuoteFunc fetches one spot price. It is the only unit of work the cache
// wraps; a nil-error return with a non-positive or non-finite price is treated
// as a failed fetch.
type QuoteFunc func(ctx context.Context, symbol string) (float64, error)

const (
	// DefaultTTL is how long a fetched price is served without refresh.
	DefaultTTL = 300 * time.Second
	// DefaultCapacity bounds the number of distinct symbols held.
	DefaultCapacity = 100
)

// PriceCache is a TTL + LRU symbol-to-price cache. All methods are safe for
// concurrent use; the fetchers share one instance within and across cycles.
type PriceCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	capacity int
	ttl      time.Duration
	now      func() time.Time
	fetch    QuoteFunc
	store    PriceStore
	stats    Stats
	flight   singleflight.Group
}

var errInvalidPrice = errors.New("non-positive or non-finite price")

type entry struct {
	symbol     string
	price      float64
	insertedAt time.Time
}

// Stats captures cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Failures  int64
}

// Option configures a PriceCache.
type Option func(*PriceCache)

// WithClock injects the time source, so tests can control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) { c.now = now }
}

// WithStore adds a shared write-through tier (e.g. Redis) consulted on local
// miss and populated on successful fetch.
func WithStore(store PriceStore) Option {
	return func(c *PriceCache) { c.store = store }
}

// WithCapacity overrides the LRU bound.
func WithCapacity(n int) Option {
	return func(c *PriceCache) { c.capacity = n }
}

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *PriceCache) { c.ttl = ttl }
}

// New creates a PriceCache around the given quote fetcher.
func New(fetch QuoteFunc, opts ...Option) *PriceCache {
	c := &PriceCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
		fetch:    fetch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the cached price for symbol, fetching it when no live
// entry exists. Concurrent misses on one symbol share a single fetch. The
// second return is false when the price could not be resolved; failures are
// never cached, so the next call retries.
func (c *PriceCache) GetOrFetch(ctx context.Context, symbol string) (float64, bool) {
	if price, ok := c.lookup(symbol); ok {
		return price, true
	}

	v, err, _ := c.flight.Do(symbol, func() (interface{}, error) {
		// a caller that queued behind the flight leader finds the entry
		// already inserted
		if price, ok := c.lookup(symbol); ok {
			return price, nil
		}
		return c.resolve(ctx, symbol)
	})
	if err != nil {
		return 0, false
	}
	return v.(float64), true
}

func (c *PriceCache) resolve(ctx context.Context, symbol string) (float64, error) {
	if c.store != nil {
		if price, ok, err := c.store.Get(ctx, symbol); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("price store lookup failed")
		} else if ok && priceValid(price) {
			c.insert(symbol, price)
			return price, nil
		}
	}

	price, err := c.fetch(ctx, symbol)
	if err != nil || !priceValid(price) {
		c.mu.Lock()
		c.stats.Failures++
		c.mu.Unlock()
		log.Warn().Err(err).Str("symbol", symbol).Float64("price", price).
			Msg("price fetch failed, not caching")
		if err == nil {
			err = errInvalidPrice
		}
		return 0, err
	}

	c.insert(symbol, price)
	if c.store != nil {
		if err := c.store.Set(ctx, symbol, price, c.ttl); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("price store write failed")
		}
	}
	return price, nil
}

// Stats returns a snapshot of the cache counters.
func (c *PriceCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of entries currently held, expired or not.
func (c *PriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *PriceCache) lookup(symbol string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[symbol]
	if !ok {
		c.stats.Misses++
		return 0, false
	}
	ent := elem.Value.(*entry)
	if c.now().Sub(ent.insertedAt) >= c.ttl {
		// Expired entries are treated as absent.
		c.order.Remove(elem)
		delete(c.entries, symbol)
		c.stats.Misses++
		return 0, false
	}
	c.order.MoveToFront(elem)
	c.stats.Hits++
	return ent.price, true
}

func (c *PriceCache) insert(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[symbol]; ok {
		ent := elem.Value.(*entry)
		ent.price = price
		ent.insertedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	for c.capacity > 0 && c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).symbol)
		c.stats.Evictions++
	}
	c.entries[symbol] = c.order.PushFront(&entry{
		symbol:     symbol,
		price:      price,
		insertedAt: c.now(),
	})
}

func priceValid(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}
