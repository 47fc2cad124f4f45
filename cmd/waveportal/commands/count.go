package commands

import (
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the total number of waves",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	controller, backend, err := openSession(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	count, err := controller.TotalCount(ctx)
	if err != nil {
		return renderError(err)
	}

	printer.Printf("%d\n", count)
	return nil
}
