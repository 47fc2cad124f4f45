package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/waveportal/internal/chain"
	"github.com/dyluth/waveportal/internal/config"
	"github.com/dyluth/waveportal/internal/devnet"
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/dyluth/waveportal/internal/txref"
	"github.com/dyluth/waveportal/pkg/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var mineOnce bool

var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Manage the local dev ledger",
	Long: `Manage the Redis container that backs the devnet backend.

The container is labelled with the ledger name from devnet.ledger so several
ledgers can run side by side on ports 6379-6478.`,
}

var devnetUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the dev ledger container",
	Args:  cobra.NoArgs,
	RunE:  runDevnetUp,
}

var devnetDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the dev ledger container (discards all waves)",
	Args:  cobra.NoArgs,
	RunE:  runDevnetDown,
}

var devnetMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run the miner that confirms pending waves",
	Long: `Confirm pending waves in submission order until interrupted.

Only needed when devnet.automine is false. Waves longer than
devnet.max_message_bytes are mined as failed transactions.`,
	Args: cobra.NoArgs,
	RunE: runDevnetMine,
}

var devnetTxCmd = &cobra.Command{
	Use:   "tx <ref>",
	Short: "Show a dev ledger transaction",
	Long: `Show the status of a wave transaction on the dev ledger.

The ref can be the full transaction reference printed by 'waveportal wave'
or a unique prefix of at least 6 characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runDevnetTx,
}

func init() {
	devnetMineCmd.Flags().BoolVar(&mineOnce, "once", false, "Mine pending waves once and exit")
	devnetCmd.AddCommand(devnetUpCmd, devnetDownCmd, devnetMineCmd, devnetTxCmd)
	rootCmd.AddCommand(devnetCmd)
}

// loadDevnetConfig loads the config and requires the devnet backend.
func loadDevnetConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Backend != config.BackendDevnet {
		return nil, printer.ErrorWithContext(
			"devnet backend not configured",
			"devnet commands need backend: devnet.",
			map[string]string{"Config": configPath, "Backend": cfg.Backend},
			[]string{"Create a devnet configuration:\n  waveportal init --backend devnet --force"},
		)
	}
	return cfg, nil
}

func runDevnetUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadDevnetConfig()
	if err != nil {
		return err
	}
	if cfg.Devnet.RedisURL != "" {
		printer.Warning("devnet.redis_url is set; the CLI will use %s, not this container\n", cfg.Devnet.RedisURL)
	}

	cli, err := devnet.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	inst, err := devnet.Up(ctx, cli, devnet.UpOptions{
		Ledger: cfg.Devnet.Ledger,
		Image:  cfg.Devnet.Image,
		Progress: func(format string, a ...interface{}) {
			printer.Success(format+"\n", a...)
		},
	})
	if err != nil {
		if inst != nil {
			return printer.ErrorWithContext(
				fmt.Sprintf("ledger '%s' already exists", cfg.Devnet.Ledger),
				"Found an existing dev ledger container.",
				map[string]string{"Container": inst.ContainerName, "State": inst.State},
				[]string{"Stop it first:\n  waveportal devnet down", "Use a different devnet.ledger name"},
			)
		}
		return fmt.Errorf("failed to start devnet: %w", err)
	}

	printer.Success("\nDev ledger '%s' started\n", inst.Ledger)
	printer.Info("  Container: %s\n  Redis:     %s\n  Run ID:    %s\n", inst.ContainerName, inst.RedisURL(), inst.RunID)
	if !*cfg.Devnet.Automine {
		printer.Info("\nAutomine is off. Run 'waveportal devnet mine' to confirm waves.\n")
	}
	return nil
}

func runDevnetDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadDevnetConfig()
	if err != nil {
		return err
	}

	cli, err := devnet.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	printer.Step("Removing dev ledger '%s'...\n", cfg.Devnet.Ledger)
	inst, err := devnet.Down(ctx, cli, cfg.Devnet.Ledger)
	if err != nil {
		if errors.Is(err, devnet.ErrNotFound) {
			return printer.Error(
				fmt.Sprintf("ledger '%s' not found", cfg.Devnet.Ledger),
				"No dev ledger container is running for this configuration.",
				[]string{"Start one with:\n  waveportal devnet up"},
			)
		}
		return err
	}

	printer.Success("Removed %s\n", inst.ContainerName)
	return nil
}

// openDevLedger connects to the configured dev ledger's Redis.
func openDevLedger(ctx context.Context, cfg *config.Config) (*ledger.Client, error) {
	redisURL := cfg.Devnet.RedisURL
	if redisURL == "" {
		cli, err := devnet.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		redisURL, err = devnet.ResolveRedisURL(ctx, cli, cfg.Devnet.Ledger)
		cli.Close()
		if err != nil {
			return nil, renderBackendError(cfg, err)
		}
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client, err := ledger.NewClient(redisOpts, cfg.Devnet.Ledger)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", redisURL),
			nil,
			[]string{"Start the dev ledger:\n  waveportal devnet up"},
		)
	}
	return client, nil
}

func runDevnetMine(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadDevnetConfig()
	if err != nil {
		return err
	}

	client, err := openDevLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	miner := chain.NewMinerFor(client, cfg.Devnet)
	if !mineOnce {
		printer.Info("Mining ledger '%s' (Ctrl+C to stop)...\n", cfg.Devnet.Ledger)
		return miner.Run(ctx)
	}

	mined := 0
	for {
		tx, err := miner.MineOnce(ctx)
		if err != nil {
			return err
		}
		if tx == nil {
			break
		}
		mined++
		if tx.Status == ledger.TxStatusFailed {
			printer.Warning("%s failed: %s\n", tx.Ref, tx.Reason)
		} else {
			printer.Mined(tx.Ref)
		}
	}
	printer.Info("%d pending wave(s) processed\n", mined)
	return nil
}

func runDevnetTx(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadDevnetConfig()
	if err != nil {
		return err
	}

	client, err := openDevLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ref, err := txref.Resolve(ctx, client, args[0])
	if err != nil {
		var ambiguous *txref.AmbiguousError
		var notFound *txref.NotFoundError
		switch {
		case errors.As(err, &ambiguous):
			return printer.Error(
				"ambiguous transaction ref",
				fmt.Sprintf("'%s' matches %d transactions:\n%s", ambiguous.ShortRef, len(ambiguous.Matches), txref.FormatMatches(ambiguous)),
				[]string{"Use a longer prefix"},
			)
		case errors.As(err, &notFound):
			return printer.Error("transaction not found", err.Error(), nil)
		default:
			return err
		}
	}

	tx, err := client.GetTransaction(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	printer.Printf("Ref:       %s\n", tx.Ref)
	printer.Printf("From:      %s\n", tx.From)
	printer.Printf("Message:   %s\n", tx.Message)
	printer.Printf("Status:    %s\n", tx.Status)
	printer.Printf("Submitted: %s\n", time.UnixMilli(tx.SubmittedAtMs).UTC().Format(time.RFC3339))
	if tx.Status.Settled() {
		printer.Printf("Settled:   %s\n", time.UnixMilli(tx.SettledAtMs).UTC().Format(time.RFC3339))
	}
	if tx.Reason != "" {
		printer.Printf("Reason:    %s\n", tx.Reason)
	}
	return nil
}
