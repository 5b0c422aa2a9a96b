package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Credentials holds the API keys for the external services. An empty string
// means "not configured" and is never an error: fetchers that need a missing
// key degrade to an empty result instead.
type Credentials struct {
	ExchangeAPIKey    string `json:"exchange_api_key"`
	ExchangeAPISecret string `json:"exchange_api_secret"`
	ExplorerAPIKey    string `json:"explorer_api_key"`
}

// HasExchange reports whether both exchange credentials are present.
func (c Credentials) HasExchange() bool {
	return c.ExchangeAPIKey != "" && c.ExchangeAPISecret != ""
}

// HasExplorer reports whether the balance-explorer key is present.
func (c Credentials) HasExplorer() bool {
	return c.ExplorerAPIKey != ""
}

// LoadCredentials reads the credentials file. A missing file is created as an
// empty skeleton so the user has something to fill in.
func LoadCredentials(path string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("credentials file not found, creating empty skeleton")
		var empty Credentials
		if err := SaveCredentials(path, empty); err != nil {
			return Credentials{}, err
		}
		return empty, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func SaveCredentials(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
