package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/waveportal/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devAccount = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "waveportal.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func validDevnet() *Config {
	return &Config{
		Version: "1.0",
		Backend: BackendDevnet,
		Devnet:  &DevnetConfig{Accounts: []string{devAccount}},
	}
}

func TestLoad_ValidDevnetConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
backend: devnet
devnet:
  redis_url: "redis://localhost:6390"
  ledger: demo
  accounts:
    - "`+devAccount+`"
  preauthorized: true
  automine: false
  max_message_bytes: 64
gateway:
  confirmation_timeout: 30s
history:
  refresh_policy: latest_completed
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, BackendDevnet, config.Backend)
	assert.Equal(t, "redis://localhost:6390", config.Devnet.RedisURL)
	assert.Equal(t, "demo", config.Devnet.Ledger)
	assert.Equal(t, []string{devAccount}, config.Devnet.Accounts)
	assert.True(t, config.Devnet.Preauthorized)
	assert.False(t, *config.Devnet.Automine)
	assert.Equal(t, 64, *config.Devnet.MaxMessageBytes)
	assert.Equal(t, 30*time.Second, config.ConfirmationTimeout())
	assert.Equal(t, history.LatestCompleted, config.RefreshPolicy())
}

func TestLoad_ValidEthereumConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
backend: ethereum
contract:
  address: "0x8AFd794A5D1BCFa8327507b18C0984147DAC7a91"
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, BackendEthereum, config.Backend)
	assert.Equal(t, DefaultRPCURL, config.Contract.RPCURL)
	assert.Empty(t, config.Contract.ABI)
	assert.Equal(t, DefaultConfirmationTimeout, config.ConfirmationTimeout())
	assert.Equal(t, history.LatestIssued, config.RefreshPolicy())
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/waveportal.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
devnet:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Defaults(t *testing.T) {
	config := validDevnet()
	require.NoError(t, config.Validate())

	assert.Equal(t, DefaultLedgerName, config.Devnet.Ledger)
	assert.Equal(t, DefaultRedisImage, config.Devnet.Image)
	assert.True(t, *config.Devnet.Automine)
	assert.Equal(t, DefaultMaxMessageBytes, *config.Devnet.MaxMessageBytes)
	assert.NotNil(t, config.Gateway)
	assert.NotNil(t, config.History)
}

func TestValidate_ZeroMaxMessageBytesMeansUnlimited(t *testing.T) {
	config := validDevnet()
	zero := 0
	config.Devnet.MaxMessageBytes = &zero

	require.NoError(t, config.Validate())
	assert.Equal(t, 0, *config.Devnet.MaxMessageBytes)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "unsupported version",
			mutate: func(c *Config) { c.Version = "2.0" },
			errMsg: "unsupported version: 2.0",
		},
		{
			name:   "missing backend",
			mutate: func(c *Config) { c.Backend = "" },
			errMsg: "backend is required",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Backend = "solana" },
			errMsg: "invalid backend: solana",
		},
		{
			name:   "devnet without section",
			mutate: func(c *Config) { c.Devnet = nil },
			errMsg: "requires a devnet section",
		},
		{
			name:   "devnet without accounts",
			mutate: func(c *Config) { c.Devnet.Accounts = nil },
			errMsg: "at least one account",
		},
		{
			name:   "devnet bad account",
			mutate: func(c *Config) { c.Devnet.Accounts = []string{"not-an-address"} },
			errMsg: "devnet.accounts[0]",
		},
		{
			name: "negative max message bytes",
			mutate: func(c *Config) {
				n := -1
				c.Devnet.MaxMessageBytes = &n
			},
			errMsg: "max_message_bytes must be >= 0",
		},
		{
			name: "ethereum without contract",
			mutate: func(c *Config) {
				c.Backend = BackendEthereum
			},
			errMsg: "requires a contract section",
		},
		{
			name: "ethereum without address",
			mutate: func(c *Config) {
				c.Backend = BackendEthereum
				c.Contract = &ContractConfig{}
			},
			errMsg: "contract.address is required",
		},
		{
			name: "ethereum bad address",
			mutate: func(c *Config) {
				c.Backend = BackendEthereum
				c.Contract = &ContractConfig{Address: "0x1234"}
			},
			errMsg: "contract.address",
		},
		{
			name: "ethereum missing abi file",
			mutate: func(c *Config) {
				c.Backend = BackendEthereum
				c.Contract = &ContractConfig{
					Address: "0x8AFd794A5D1BCFa8327507b18C0984147DAC7a91",
					ABI:     "/nonexistent/WavePortal.json",
				}
			},
			errMsg: "contract.abi does not exist",
		},
		{
			name:   "bad confirmation timeout",
			mutate: func(c *Config) { c.Gateway = &GatewayConfig{ConfirmationTimeout: "soon"} },
			errMsg: "gateway.confirmation_timeout",
		},
		{
			name:   "negative confirmation timeout",
			mutate: func(c *Config) { c.Gateway = &GatewayConfig{ConfirmationTimeout: "-1s"} },
			errMsg: "must be positive",
		},
		{
			name:   "unknown refresh policy",
			mutate: func(c *Config) { c.History = &HistoryConfig{RefreshPolicy: "first_wins"} },
			errMsg: "history.refresh_policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validDevnet()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ExistingABIFile(t *testing.T) {
	abiPath := filepath.Join(t.TempDir(), "WavePortal.json")
	require.NoError(t, os.WriteFile(abiPath, []byte("[]"), 0644))

	config := &Config{
		Version: "1.0",
		Backend: BackendEthereum,
		Contract: &ContractConfig{
			Address: "0x8AFd794A5D1BCFa8327507b18C0984147DAC7a91",
			ABI:     abiPath,
		},
	}
	assert.NoError(t, config.Validate())
}

func TestAccessors_WithoutValidate(t *testing.T) {
	config := &Config{}
	assert.Equal(t, DefaultConfirmationTimeout, config.ConfirmationTimeout())
	assert.Equal(t, history.LatestIssued, config.RefreshPolicy())
}
