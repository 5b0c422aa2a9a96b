package exchange

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/slothmock/SlothFinanceTracker/internal/cache"
	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/domain"
)

// CredentialsFunc supplies the stored exchange credentials at authentication
// time.
type CredentialsFunc func() (config.Credentials, error)

// Fetcher turns the exchange account listing into valued holdings. The client
// session is authenticated lazily on first use; missing credentials degrade
// to an empty result, never an error to the caller.
type Fetcher struct {
	baseURL string
	creds   CredentialsFunc
	prices  *cache.PriceCache

	mu     sync.Mutex
	client *Client
}

// NewFetcher creates a holdings fetcher.
func NewFetcher(baseURL string, creds CredentialsFunc, prices *cache.PriceCache) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		creds:   creds,
		prices:  prices,
	}
}

// FetchHoldings lists all accounts once, drops dust balances and values the
// rest via the price cache. Every failure path returns an empty list.
func (f *Fetcher) FetchHoldings(ctx context.Context) []domain.Holding {
	client := f.ensureClient()
	if client == nil {
		return nil
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("exchange account listing failed")
		return nil
	}

	holdings := make([]domain.Holding, 0, len(accounts))
	for _, account := range accounts {
		balance, err := strconv.ParseFloat(account.Available, 64)
		if err != nil {
			log.Warn().Str("currency", account.Currency).Str("value", account.Available).
				Msg("skipping account with unparsable balance")
			continue
		}
		if domain.IsDust(balance) {
			continue
		}
		price, known := f.prices.GetOrFetch(ctx, account.Currency)
		holdings = append(holdings, domain.Holding{
			Currency:   account.Currency,
			Balance:    balance,
			Value:      balance * price,
			PriceKnown: known,
		})
	}
	return holdings
}

// ensureClient authenticates the session once. Returns nil when credentials
// are not configured.
func (f *Fetcher) ensureClient() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client
	}
	creds, err := f.creds()
	if err != nil {
		log.Error().Err(err).Msg("loading exchange credentials failed")
		return nil
	}
	if !creds.HasExchange() {
		log.Error().Msg("exchange API credentials are missing")
		return nil
	}
	f.client = NewClient(f.baseURL, creds.ExchangeAPIKey, creds.ExchangeAPISecret)
	return f.client
}
