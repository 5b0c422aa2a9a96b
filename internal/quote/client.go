// Package quote fetches spot prices from the price-quote service. One call is
// one HTTP request: retry policy belongs to callers, and the price cache in
// front of this client is what keeps call volume down.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/slothmock/SlothFinanceTracker/internal/net/ratelimit"
)

const service = "quote"

// Client talks to a Coinbase-style spot price API.
type Client struct {
	baseURL string
	fiat    string
	client  *http.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
}

// spotResponse is the wire shape of the quote service:
// {"data": {"amount": "<numeric string>"}}
type spotResponse struct {
	Data struct {
		Amount string `json:"amount"`
	} `json:"data"`
}

// New creates a quote client. fiat is the single quote currency every price
// is expressed in.
func New(baseURL, fiat string, limiter *ratelimit.Limiter) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("quote breaker state change")
		},
	})
	return &Client{
		baseURL: baseURL,
		fiat:    fiat,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		breaker: breaker,
	}
}

// SpotPrice fetches the current price of symbol in the configured fiat. The
// signature matches cache.QuoteFunc so the price cache can wrap it directly.
func (c *Client) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func (c *Client) fetch(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx, service); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/prices/%s-%s/spot", c.baseURL, symbol, c.fiat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("spot price %s-%s: %w", symbol, c.fiat, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("spot price %s-%s: status %d", symbol, c.fiat, resp.StatusCode)
	}

	var body spotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode spot price %s-%s: %w", symbol, c.fiat, err)
	}
	price, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q for %s-%s: %w", body.Data.Amount, symbol, c.fiat, err)
	}
	return price, nil
}
