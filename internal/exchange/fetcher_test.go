package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothmock/SlothFinanceTracker/internal/cache"
	"github.com/slothmock/SlothFinanceTracker/internal/config"
)

func fixedPrices(prices map[string]float64) *cache.PriceCache {
	return cache.New(func(ctx context.Context, symbol string) (float64, error) {
		p, ok := prices[symbol]
		if !ok {
			return 0, fmt.Errorf("no price for %s", symbol)
		}
		return p, nil
	})
}

func withCreds(key, secret string) CredentialsFunc {
	return func() (config.Credentials, error) {
		return config.Credentials{ExchangeAPIKey: key, ExchangeAPISecret: secret}, nil
	}
}

const accountsBody = `{"accounts":[
	{"currency":"BTC","available_balance":{"value":"0.5"}},
	{"currency":"ETH","available_balance":{"value":"0.0001"}},
	{"currency":"SOL","available_balance":{"value":"0.00011"}},
	{"currency":"XRP","available_balance":{"value":"garbage"}}
]}`

func TestFetchHoldingsDustFilterAndParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, accountsPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("CB-ACCESS-KEY"))
		assert.NotEmpty(t, r.Header.Get("CB-ACCESS-SIGN"))
		fmt.Fprint(w, accountsBody)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, withCreds("k", "s"), fixedPrices(map[string]float64{
		"BTC": 60000, "SOL": 150,
	}))
	holdings := f.FetchHoldings(context.Background())

	// ETH sits exactly at the dust boundary and is excluded; SOL just above
	// it survives; the garbage XRP row is skipped, not fatal.
	require.Len(t, holdings, 2)
	assert.Equal(t, "BTC", holdings[0].Currency)
	assert.Equal(t, 30000.0, holdings[0].Value)
	assert.Equal(t, "SOL", holdings[1].Currency)
	assert.InDelta(t, 0.0165, holdings[1].Value, 1e-9)
}

func TestFetchHoldingsMissingCredentials(t *testing.T) {
	f := NewFetcher("http://unreachable.invalid", withCreds("", ""), fixedPrices(nil))
	assert.Empty(t, f.FetchHoldings(context.Background()))
}

func TestFetchHoldingsListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, withCreds("k", "s"), fixedPrices(nil))
	assert.Empty(t, f.FetchHoldings(context.Background()))
}

func TestFetchHoldingsLazyAuthOnce(t *testing.T) {
	calls := 0
	creds := func() (config.Credentials, error) {
		calls++
		return config.Credentials{ExchangeAPIKey: "k", ExchangeAPISecret: "s"}, nil
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accounts":[]}`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, creds, fixedPrices(nil))
	f.FetchHoldings(context.Background())
	f.FetchHoldings(context.Background())
	assert.Equal(t, 1, calls, "credentials should be read once for the session")
}

func TestFetchHoldingsUnknownPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accounts":[{"currency":"OBSCURE","available_balance":{"value":"10"}}]}`)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, withCreds("k", "s"), fixedPrices(nil))
	holdings := f.FetchHoldings(context.Background())

	require.Len(t, holdings, 1)
	assert.Zero(t, holdings[0].Value)
	assert.False(t, holdings[0].PriceKnown)
}
