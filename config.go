package opensea

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Network represents a supported Ethereum network
type Network string

const (
	NetworkMainnet Network = "main"
	NetworkRinkeby Network = "rinkeby"
)

// SupportedNetworks lists all supported networks
var SupportedNetworks = []Network{NetworkMainnet, NetworkRinkeby}

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDMainnet ChainID = 1
	ChainIDRinkeby ChainID = 4
)

// NetworkDefaults holds contract addresses and endpoints for a network
type NetworkDefaults struct {
	ChainID            ChainID
	APIBaseURL         string
	WyvernExchange     string
	ProxyRegistry      string
	TokenTransferProxy string
	FeeRecipient       string
}

// DefaultNetworkConfig maps networks to their contract addresses and API hosts
var DefaultNetworkConfig = map[Network]NetworkDefaults{
	NetworkMainnet: {
		ChainID:            ChainIDMainnet,
		APIBaseURL:         "https://api.opensea.io",
		WyvernExchange:     "0x7be8076f4ea4a4ad08075c2508e481d6c946d12b",
		ProxyRegistry:      "0xa5409ec958c83c3f309868babaca7c86dcb077c1",
		TokenTransferProxy: "0xe5c783ee536cf5e63e792988335c4255169be4e1",
		FeeRecipient:       "0x5b3256965e7c3cf26e11fcaf296dfc8807c01073",
	},
	NetworkRinkeby: {
		ChainID:            ChainIDRinkeby,
		APIBaseURL:         "https://rinkeby-api.opensea.io",
		WyvernExchange:     "0x5206e78b21ce315ce284fb24cf05e0585a93b1d9",
		ProxyRegistry:      "0xf57b2c51ded3a29e6891aba85459d600256cf317",
		TokenTransferProxy: "0x82d102457854c985221249f86659c9d6cf12aa72",
		FeeRecipient:       "0x5b3256965e7c3cf26e11fcaf296dfc8807c01073",
	},
}

// ClientConfig holds configuration for creating a Client
type ClientConfig struct {
	Network            Network       `yaml:"network"`
	APIKey             string        `yaml:"apiKey"`
	APIBaseURL         string        `yaml:"apiBaseURL"`
	RPCURL             string        `yaml:"rpcURL"`
	WyvernExchangeAddr string        `yaml:"wyvernExchange"`
	ProxyRegistryAddr  string        `yaml:"proxyRegistry"`
	FeeRecipientAddr   string        `yaml:"feeRecipient"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	Log                LogConfig     `yaml:"log"`
}

// LoadConfig reads a YAML config file and applies environment overrides.
// An empty path skips the file and uses environment and defaults only.
func LoadConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if v := os.Getenv("OPENSEA_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENSEA_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("OPENSEA_NETWORK"); v != "" {
		cfg.Network = Network(v)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset addresses and endpoints from the network defaults
func (c *ClientConfig) applyDefaults() error {
	if c.Network == "" {
		c.Network = NetworkMainnet
	}
	defaults, ok := DefaultNetworkConfig[c.Network]
	if !ok {
		return &InvalidParamError{
			Message: fmt.Sprintf("network must be one of %v, got %q", SupportedNetworks, c.Network),
		}
	}

	if c.APIBaseURL == "" {
		c.APIBaseURL = defaults.APIBaseURL
	}
	if c.WyvernExchangeAddr == "" {
		c.WyvernExchangeAddr = defaults.WyvernExchange
	}
	if c.ProxyRegistryAddr == "" {
		c.ProxyRegistryAddr = defaults.ProxyRegistry
	}
	if c.FeeRecipientAddr == "" {
		c.FeeRecipientAddr = defaults.FeeRecipient
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = time.Second
	}
	return nil
}
