package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsCreatesDefaultsOnMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", settings.Fiat)
	assert.Equal(t, 100, settings.Cache.MaxEntries)
	assert.Equal(t, 300, settings.Cache.TTLSeconds)
	assert.FileExists(t, path)

	// Second load is idempotent and reads the file back.
	again, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, settings, again)
}

func TestLoadSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := DefaultSettings()
	settings.ETHAddress = "0xdeadbeef"
	settings.Watchlist = []WatchedToken{
		{Name: "TOKEN", ContractAddress: "0xabc", Decimals: 1e6},
	}
	require.NoError(t, SaveSettings(path, settings))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", loaded.ETHAddress)
	require.Len(t, loaded.Watchlist, 1)
	assert.Equal(t, 1e6, loaded.Watchlist[0].Decimals)
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_entries: -1\n"), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestValidateWatchlist(t *testing.T) {
	settings := DefaultSettings()
	settings.Watchlist = []WatchedToken{{Name: "X", ContractAddress: "0x1", Decimals: 0}}
	assert.Error(t, settings.Validate())

	settings.Watchlist[0].Decimals = 1e18
	assert.NoError(t, settings.Validate())
}

func TestValidateRejectsZeroBurstWithRate(t *testing.T) {
	settings := DefaultSettings()
	settings.Quote.Burst = 0
	assert.Error(t, settings.Validate())

	settings = DefaultSettings()
	settings.Explorer.Burst = 0
	assert.Error(t, settings.Validate())

	// no rate configured means the limiter defaults apply; burst is moot
	settings = DefaultSettings()
	settings.Quote.RPS = 0
	settings.Quote.Burst = 0
	assert.NoError(t, settings.Validate())
}

func TestLoadCredentialsCreatesSkeleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.False(t, creds.HasExchange())
	assert.False(t, creds.HasExplorer())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCredentialsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	in := Credentials{ExchangeAPIKey: "k", ExchangeAPISecret: "s", ExplorerAPIKey: "e"}
	require.NoError(t, SaveCredentials(path, in))

	out, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, out.HasExchange())
	assert.True(t, out.HasExplorer())
}
