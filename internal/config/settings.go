// Package config loads the user-editable settings and API credentials. Both
// stores are created with sensible defaults on first use, so a fresh checkout
// runs without manual setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// WatchedToken is one user-configured token contract to include in wallet
// balance fetching.
type WatchedToken struct {
	Name            string `yaml:"name" json:"name"`
	ContractAddress string `yaml:"contract_address" json:"contract_address"`
	// Decimals is the raw-balance divisor, e.g. 1e6 for a 6-decimal token.
	Decimals float64 `yaml:"decimals" json:"decimals"`
}

// CacheSettings sizes the price cache.
type CacheSettings struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the configured entry lifetime.
func (c CacheSettings) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ServiceSettings configures one upstream HTTP service.
type ServiceSettings struct {
	BaseURL string  `yaml:"base_url"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// HTTPSettings configures the local read-only server.
type HTTPSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisSettings configures the optional shared price cache tier.
type RedisSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// PostgresSettings configures the optional database position store. When DSN
// is empty the CSV store is used.
type PostgresSettings struct {
	DSN string `yaml:"dsn"`
}

// StorageSettings locates the durable local stores.
type StorageSettings struct {
	PositionsPath string `yaml:"positions_path"`
	FinancesPath  string `yaml:"finances_path"`
}

// Settings is the full user configuration.
type Settings struct {
	Fiat       string           `yaml:"fiat"`
	ETHAddress string           `yaml:"eth_address"`
	Watchlist  []WatchedToken   `yaml:"watchlist"`
	Cache      CacheSettings    `yaml:"cache"`
	Quote      ServiceSettings  `yaml:"quote"`
	Explorer   ServiceSettings  `yaml:"explorer"`
	HTTP       HTTPSettings     `yaml:"http"`
	Redis      RedisSettings    `yaml:"redis"`
	Postgres   PostgresSettings `yaml:"postgres"`
	Storage    StorageSettings  `yaml:"storage"`
}

// DefaultSettings returns the configuration used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		Fiat: "USD",
		Cache: CacheSettings{
			MaxEntries: 100,
			TTLSeconds: 300,
		},
		Quote: ServiceSettings{
			BaseURL: "https://api.coinbase.com/v2",
			RPS:     3,
			Burst:   5,
		},
		Explorer: ServiceSettings{
			BaseURL: "https://api.basescan.org/api",
			RPS:     4,
			Burst:   4,
		},
		HTTP: HTTPSettings{
			Host: "127.0.0.1",
			Port: 8087,
		},
		Redis: RedisSettings{
			Addr: "localhost:6379",
		},
		Storage: StorageSettings{
			PositionsPath: filepath.Join("data", "defi_positions.csv"),
			FinancesPath:  filepath.Join("data", "finances.json"),
		},
	}
}

// LoadSettings reads the YAML settings file. A missing file is created with
// defaults rather than treated as an error; malformed or invalid content is.
func LoadSettings(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("settings file not found, creating defaults")
		defaults := DefaultSettings()
		if err := SaveSettings(path, defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validate settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes the YAML settings file, creating parent directories as
// needed.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (s Settings) Validate() error {
	if s.Fiat == "" {
		return fmt.Errorf("fiat must not be empty")
	}
	if s.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", s.Cache.MaxEntries)
	}
	if s.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", s.Cache.TTLSeconds)
	}
	// a limiter with burst 0 rejects every wait, so a configured rate must
	// carry a usable burst
	if s.Quote.RPS > 0 && s.Quote.Burst <= 0 {
		return fmt.Errorf("quote.burst must be positive when quote.rps is set, got %d", s.Quote.Burst)
	}
	if s.Explorer.RPS > 0 && s.Explorer.Burst <= 0 {
		return fmt.Errorf("explorer.burst must be positive when explorer.rps is set, got %d", s.Explorer.Burst)
	}
	for i, token := range s.Watchlist {
		if token.Name == "" || token.ContractAddress == "" {
			return fmt.Errorf("watchlist[%d]: name and contract_address are required", i)
		}
		if token.Decimals <= 0 {
			return fmt.Errorf("watchlist[%d] (%s): decimals divisor must be positive", i, token.Name)
		}
	}
	return nil
}
