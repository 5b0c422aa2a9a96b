// Package ratelimit provides per-service request throttling for the external
// APIs the fetchers talk to. The free tiers of the balance explorer and the
// price-quote service are small enough that an unthrottled refresh burst can
// get a key banned.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter multiplexes token-bucket limiters keyed by service name.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	defaults Rate
	rates    map[string]Rate
}

// Rate is a requests-per-second budget with burst headroom.
type Rate struct {
	RPS   float64
	Burst int
}

// New creates a limiter. Services without an explicit rate fall back to the
// default budget.
func New(defaults Rate, rates map[string]Rate) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: defaults,
		rates:    rates,
	}
}

func (l *Limiter) limiter(service string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[service]; ok {
		return lim
	}
	budget := l.defaults
	if r, ok := l.rates[service]; ok {
		budget = r
	}
	// a zero rate or burst would reject or stall every wait
	if budget.RPS <= 0 || budget.Burst <= 0 {
		budget = l.defaults
	}
	lim := rate.NewLimiter(rate.Limit(budget.RPS), budget.Burst)
	l.limiters[service] = lim
	return lim
}

// Wait blocks until the service's bucket grants a token or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, service string) error {
	return l.limiter(service).Wait(ctx)
}

// Allow reports whether a request for the service may proceed right now.
func (l *Limiter) Allow(service string) bool {
	return l.limiter(service).Allow()
}
