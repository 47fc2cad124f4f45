package chain

import (
	"context"
	"fmt"

	"github.com/dyluth/waveportal/internal/config"
	"github.com/dyluth/waveportal/internal/devnet"
	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/wallet"
	"github.com/dyluth/waveportal/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/redis/go-redis/v9"
)

// Endpoint is a contract endpoint that can also stream new records.
type Endpoint interface {
	gateway.Contract
	Watch(ctx context.Context) (<-chan gateway.RawRecord, error)
	Close() error
}

// Backend pairs a contract endpoint with the wallet that signs for it.
type Backend struct {
	Endpoint Endpoint
	Provider wallet.Provider
}

// Close releases the endpoint connection.
func (b *Backend) Close() error {
	return b.Endpoint.Close()
}

// Open connects to the backend named in cfg. prompter is used by the dev
// ledger's account provider and may be nil.
func Open(ctx context.Context, cfg *config.Config, prompter wallet.Prompter) (*Backend, error) {
	switch cfg.Backend {
	case config.BackendEthereum:
		return openEthereum(ctx, cfg.Contract)
	case config.BackendDevnet:
		return openDevnet(ctx, cfg.Devnet, prompter)
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}

func openEthereum(ctx context.Context, cfg *config.ContractConfig) (*Backend, error) {
	contractABI, err := LoadABI(cfg.ABI)
	if err != nil {
		return nil, err
	}

	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err)
	}

	return &Backend{
		Endpoint: NewEthereum(client, common.HexToAddress(cfg.Address), contractABI),
		Provider: wallet.NewRPCProvider(client),
	}, nil
}

func openDevnet(ctx context.Context, cfg *config.DevnetConfig, prompter wallet.Prompter) (*Backend, error) {
	redisURL := cfg.RedisURL
	if redisURL == "" {
		cli, err := devnet.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		defer cli.Close()

		if redisURL, err = devnet.ResolveRedisURL(ctx, cli, cfg.Ledger); err != nil {
			return nil, err
		}
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}

	client, err := ledger.NewClient(redisOpts, cfg.Ledger)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to dev ledger at %s: %w", redisURL, err)
	}

	var miner *ledger.Miner
	if cfg.Automine == nil || *cfg.Automine {
		miner = NewMinerFor(client, cfg)
	}

	return &Backend{
		Endpoint: NewDevLedger(client, miner),
		Provider: wallet.NewStaticProvider(cfg.Accounts, cfg.Preauthorized, prompter),
	}, nil
}

// NewMinerFor creates a miner using the devnet message limit.
func NewMinerFor(client *ledger.Client, cfg *config.DevnetConfig) *ledger.Miner {
	opts := ledger.MinerOptions{}
	if cfg.MaxMessageBytes != nil {
		opts.MaxMessageBytes = *cfg.MaxMessageBytes
		if opts.MaxMessageBytes == 0 {
			opts.MaxMessageBytes = -1 // unlimited
		}
	}
	return ledger.NewMiner(client, opts)
}
