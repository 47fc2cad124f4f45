package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/wallet"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendEthereum = "ethereum"
	BackendDevnet   = "devnet"
)

// Defaults applied by Validate.
const (
	DefaultRPCURL              = "http://127.0.0.1:8545"
	DefaultLedgerName          = "default"
	DefaultRedisImage          = "redis:7-alpine"
	DefaultMaxMessageBytes     = 280
	DefaultConfirmationTimeout = 2 * time.Minute
)

// Config represents the top-level waveportal.yml configuration
type Config struct {
	Version  string          `yaml:"version"`
	Backend  string          `yaml:"backend"` // "ethereum" or "devnet"
	Contract *ContractConfig `yaml:"contract,omitempty"`
	Devnet   *DevnetConfig   `yaml:"devnet,omitempty"`
	Gateway  *GatewayConfig  `yaml:"gateway,omitempty"`
	History  *HistoryConfig  `yaml:"history,omitempty"`
}

// ContractConfig addresses the deployed wave contract
type ContractConfig struct {
	RPCURL  string `yaml:"rpc_url,omitempty"`
	Address string `yaml:"address"`
	ABI     string `yaml:"abi,omitempty"` // Path to ABI JSON or compiler artifact; empty uses the built-in ABI
}

// DevnetConfig configures the Redis-backed dev ledger
type DevnetConfig struct {
	RedisURL        string   `yaml:"redis_url,omitempty"` // Empty locates the devnet container
	Image           string   `yaml:"image,omitempty"`
	Ledger          string   `yaml:"ledger,omitempty"`
	Accounts        []string `yaml:"accounts"`
	Preauthorized   bool     `yaml:"preauthorized,omitempty"` // Skip the connect prompt
	Automine        *bool    `yaml:"automine,omitempty"`      // Default: true
	MaxMessageBytes *int     `yaml:"max_message_bytes,omitempty"`
}

// GatewayConfig tunes the write lifecycle
type GatewayConfig struct {
	ConfirmationTimeout string `yaml:"confirmation_timeout,omitempty"` // Go duration, default 2m
}

// HistoryConfig selects how overlapping refreshes resolve
type HistoryConfig struct {
	RefreshPolicy string `yaml:"refresh_policy,omitempty"` // latest_issued or latest_completed
}

// Validate performs strict validation and applies defaults
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	switch c.Backend {
	case BackendEthereum:
		if err := c.validateContract(); err != nil {
			return err
		}
	case BackendDevnet:
		if err := c.validateDevnet(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("backend is required (must be '%s' or '%s')", BackendEthereum, BackendDevnet)
	default:
		return fmt.Errorf("invalid backend: %s (must be '%s' or '%s')", c.Backend, BackendEthereum, BackendDevnet)
	}

	if c.Gateway == nil {
		c.Gateway = &GatewayConfig{}
	}
	if c.Gateway.ConfirmationTimeout != "" {
		d, err := time.ParseDuration(c.Gateway.ConfirmationTimeout)
		if err != nil {
			return fmt.Errorf("gateway.confirmation_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("gateway.confirmation_timeout must be positive, got %s", c.Gateway.ConfirmationTimeout)
		}
	}

	if c.History == nil {
		c.History = &HistoryConfig{}
	}
	if _, err := history.ParsePolicy(c.History.RefreshPolicy); err != nil {
		return fmt.Errorf("history.refresh_policy: %w", err)
	}

	return nil
}

func (c *Config) validateContract() error {
	if c.Contract == nil {
		return fmt.Errorf("backend '%s' requires a contract section", BackendEthereum)
	}
	if c.Contract.Address == "" {
		return fmt.Errorf("contract.address is required")
	}
	if _, err := wallet.ParseIdentity(c.Contract.Address); err != nil {
		return fmt.Errorf("contract.address: %w", err)
	}
	if c.Contract.RPCURL == "" {
		c.Contract.RPCURL = DefaultRPCURL
	}
	if c.Contract.ABI != "" {
		if _, err := os.Stat(c.Contract.ABI); os.IsNotExist(err) {
			return fmt.Errorf("contract.abi does not exist: %s", c.Contract.ABI)
		}
	}
	return nil
}

func (c *Config) validateDevnet() error {
	if c.Devnet == nil {
		return fmt.Errorf("backend '%s' requires a devnet section", BackendDevnet)
	}
	d := c.Devnet

	if len(d.Accounts) == 0 {
		return fmt.Errorf("devnet.accounts must list at least one account")
	}
	for i, account := range d.Accounts {
		if _, err := wallet.ParseIdentity(account); err != nil {
			return fmt.Errorf("devnet.accounts[%d]: %w", i, err)
		}
	}

	if d.Ledger == "" {
		d.Ledger = DefaultLedgerName
	}
	if d.Image == "" {
		d.Image = DefaultRedisImage
	}
	if d.Automine == nil {
		automine := true
		d.Automine = &automine
	}
	if d.MaxMessageBytes == nil {
		maxBytes := DefaultMaxMessageBytes
		d.MaxMessageBytes = &maxBytes
	}
	if *d.MaxMessageBytes < 0 {
		return fmt.Errorf("devnet.max_message_bytes must be >= 0 (0 = unlimited), got %d", *d.MaxMessageBytes)
	}
	return nil
}

// ConfirmationTimeout returns the configured timeout or the default.
func (c *Config) ConfirmationTimeout() time.Duration {
	if c.Gateway == nil || c.Gateway.ConfirmationTimeout == "" {
		return DefaultConfirmationTimeout
	}
	d, err := time.ParseDuration(c.Gateway.ConfirmationTimeout)
	if err != nil || d <= 0 {
		return DefaultConfirmationTimeout
	}
	return d
}

// RefreshPolicy returns the configured history policy.
func (c *Config) RefreshPolicy() history.Policy {
	if c.History == nil {
		return history.LatestIssued
	}
	p, err := history.ParsePolicy(c.History.RefreshPolicy)
	if err != nil {
		return history.LatestIssued
	}
	return p
}

// Load reads and validates waveportal.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
