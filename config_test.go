package opensea

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENSEA_API_KEY", "")
	t.Setenv("OPENSEA_RPC_URL", "")
	t.Setenv("OPENSEA_NETWORK", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	defaults := DefaultNetworkConfig[NetworkMainnet]
	assert.Equal(t, NetworkMainnet, cfg.Network)
	assert.Equal(t, defaults.APIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, defaults.WyvernExchange, cfg.WyvernExchangeAddr)
	assert.Equal(t, defaults.ProxyRegistry, cfg.ProxyRegistryAddr)
	assert.Equal(t, defaults.FeeRecipient, cfg.FeeRecipientAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.RPCURL)
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("OPENSEA_API_KEY", "")
	t.Setenv("OPENSEA_RPC_URL", "")
	t.Setenv("OPENSEA_NETWORK", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
network: rinkeby
apiKey: from-file
rpcURL: http://localhost:8545
requestTimeout: 5s
pollInterval: 250ms
log:
  level: debug
  maxSize: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, NetworkRinkeby, cfg.Network)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.Equal(t, DefaultNetworkConfig[NetworkRinkeby].WyvernExchange, cfg.WyvernExchangeAddr)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apiKey: from-file\nnetwork: main\n"), 0o600))

	t.Setenv("OPENSEA_API_KEY", "from-env")
	t.Setenv("OPENSEA_RPC_URL", "http://node:8545")
	t.Setenv("OPENSEA_NETWORK", "rinkeby")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, NetworkRinkeby, cfg.Network)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("OPENSEA_NETWORK", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("OPENSEA_NETWORK", "ropsten")
	_, err = LoadConfig("")
	assert.True(t, errors.Is(err, ErrInvalidParam))
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := ClientConfig{
		APIBaseURL:         "http://localhost:9000",
		WyvernExchangeAddr: "0x1111111111111111111111111111111111111111",
		RequestTimeout:     time.Minute,
	}
	require.NoError(t, cfg.applyDefaults())

	assert.Equal(t, "http://localhost:9000", cfg.APIBaseURL)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.WyvernExchangeAddr)
	assert.Equal(t, time.Minute, cfg.RequestTimeout)
}
