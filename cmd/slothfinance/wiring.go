package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/slothmock/SlothFinanceTracker/internal/aggregator"
	"github.com/slothmock/SlothFinanceTracker/internal/cache"
	"github.com/slothmock/SlothFinanceTracker/internal/config"
	"github.com/slothmock/SlothFinanceTracker/internal/exchange"
	"github.com/slothmock/SlothFinanceTracker/internal/explorer"
	"github.com/slothmock/SlothFinanceTracker/internal/fiat"
	"github.com/slothmock/SlothFinanceTracker/internal/ledger"
	"github.com/slothmock/SlothFinanceTracker/internal/net/ratelimit"
	"github.com/slothmock/SlothFinanceTracker/internal/quote"
)

const exchangeBaseURL = "https://api.coinbase.com"

// engine bundles the wired components one command needs. Commands that only
// touch the ledger or fiat store use the cheap accessors instead of
// buildEngine.
type engine struct {
	settings   config.Settings
	aggregator *aggregator.Aggregator
	prices     *cache.PriceCache
	positions  ledger.Store
}

// buildEngine wires settings into a ready aggregator: rate limiter, quote
// client behind the price cache (with the optional Redis tier), both
// fetchers, and the configured position store.
func buildEngine(cmd *cobra.Command, opts ...aggregator.Option) (*engine, error) {
	settings, creds, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(
		ratelimit.Rate{RPS: 2, Burst: 2},
		map[string]ratelimit.Rate{
			"quote":    {RPS: settings.Quote.RPS, Burst: settings.Quote.Burst},
			"explorer": {RPS: settings.Explorer.RPS, Burst: settings.Explorer.Burst},
		},
	)

	quoteClient := quote.New(settings.Quote.BaseURL, settings.Fiat, limiter)
	cacheOpts := []cache.Option{
		cache.WithCapacity(settings.Cache.MaxEntries),
		cache.WithTTL(settings.Cache.TTL()),
	}
	if settings.Redis.Enabled {
		store := cache.NewRedisPriceStore(cache.DialRedis(settings.Redis.Addr, settings.Redis.DB))
		cacheOpts = append(cacheOpts, cache.WithStore(store))
		log.Info().Str("addr", settings.Redis.Addr).Msg("redis price tier enabled")
	}
	prices := cache.New(quoteClient.SpotPrice, cacheOpts...)

	exchangeFetcher := exchange.NewFetcher(exchangeBaseURL, func() (config.Credentials, error) {
		return creds, nil
	}, prices)

	explorerClient := explorer.NewClient(settings.Explorer.BaseURL, creds.ExplorerAPIKey, limiter)
	walletFetcher := explorer.NewFetcher(explorerClient, prices)

	positions, err := openPositionStore(settings)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(exchangeFetcher, walletFetcher, positions, settings.Watchlist, opts...)
	return &engine{
		settings:   settings,
		aggregator: agg,
		prices:     prices,
		positions:  positions,
	}, nil
}

func loadConfig(cmd *cobra.Command) (config.Settings, config.Credentials, error) {
	settingsPath, _ := cmd.Flags().GetString("settings")
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return config.Settings{}, config.Credentials{}, err
	}

	credsPath, _ := cmd.Flags().GetString("credentials")
	creds, err := config.LoadCredentials(credsPath)
	if err != nil {
		return config.Settings{}, config.Credentials{}, err
	}
	return settings, creds, nil
}

func openPositionStore(settings config.Settings) (ledger.Store, error) {
	if dsn := settings.Postgres.DSN; dsn != "" {
		store, err := ledger.OpenPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres position store: %w", err)
		}
		log.Info().Msg("using postgres position store")
		return store, nil
	}
	return ledger.NewCSVStore(settings.Storage.PositionsPath), nil
}

func openFiatLedger(cmd *cobra.Command) (*fiat.Ledger, error) {
	settingsPath, _ := cmd.Flags().GetString("settings")
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	l := fiat.New(settings.Storage.FinancesPath)
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}
