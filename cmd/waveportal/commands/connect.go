package commands

import (
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authorize a wallet account for this session",
	Long: `Discover an already authorized account, or ask the wallet to grant one.

With the ethereum backend the node answers eth_requestAccounts (falling back
to eth_accounts). With the devnet backend the configured dev accounts are
offered after a confirmation prompt unless devnet.preauthorized is set.`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	controller, backend, err := openSession(ctx, cfg, &terminalPrompter{in: cmd.InOrStdin(), out: printer.Out})
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := controller.Activate(ctx); err != nil {
		return renderError(err)
	}
	if id, ok := controller.Identity(); ok {
		printer.Success("Already connected: %s\n", id)
		return nil
	}

	id, err := controller.Connect(ctx)
	if err != nil {
		return renderError(err)
	}

	printer.Success("Connected: %s\n", id)
	return nil
}
