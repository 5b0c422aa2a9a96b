// Package explorer fetches on-chain balances from an Etherscan-style balance
// explorer API and resolves them into normalized holdings.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/slothmock/SlothFinanceTracker/internal/net/ratelimit"
)

const service = "explorer"

// Client talks to the balance-explorer service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *ratelimit.Limiter
}

// envelope is the explorer wire shape. Status "1" means success; anything
// else is a logical failure even on HTTP 200.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// NewClient creates an explorer client. An empty apiKey is allowed; callers
// check HasKey before fetching.
func NewClient(baseURL, apiKey string, limiter *ratelimit.Limiter) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// NativeBalance returns the raw native-asset balance (smallest unit) of an
// address.
func (c *Client) NativeBalance(ctx context.Context, address string) (float64, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "balance")
	params.Set("address", address)
	return c.rawBalance(ctx, params)
}

// TokenBalance returns the raw token balance (smallest unit) of an address
// for one token contract.
func (c *Client) TokenBalance(ctx context.Context, contract, address string) (float64, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("contractaddress", contract)
	params.Set("address", address)
	return c.rawBalance(ctx, params)
}

func (c *Client) rawBalance(ctx context.Context, params url.Values) (float64, error) {
	if err := c.limiter.Wait(ctx, service); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("explorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("explorer request: status %d", resp.StatusCode)
	}

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode explorer response: %w", err)
	}
	if body.Status != "1" {
		return 0, fmt.Errorf("explorer error: %s", body.Message)
	}

	// Raw balances are integer strings that can exceed int64; float64 keeps
	// enough precision for display-grade amounts.
	raw, err := strconv.ParseFloat(body.Result, 64)
	if err != nil {
		return 0, fmt.Errorf("parse raw balance %q: %w", body.Result, err)
	}
	return raw, nil
}
