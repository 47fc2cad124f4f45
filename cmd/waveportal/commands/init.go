package commands

import (
	"fmt"

	"github.com/dyluth/waveportal/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit   bool
	initBackend string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a WavePortal configuration",
	Long: `Create a starter waveportal.yml in the current directory.

The devnet backend (default) uses a local Redis-backed ledger.
The ethereum backend talks to a deployed contract through a JSON-RPC node.

Use --force to overwrite an existing configuration.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing configuration")
	initCmd.Flags().StringVar(&initBackend, "backend", "devnet", "Backend to configure (devnet or ethereum)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting(configPath); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(configPath, initBackend, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(configPath, initBackend)
	return nil
}
