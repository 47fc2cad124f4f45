package commands

import (
	"fmt"

	"github.com/dyluth/waveportal/internal/chain"
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/dyluth/waveportal/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream new waves as they are mined",
	Long: `Stream waves as they are mined until interrupted.

The devnet backend pushes waves over Redis pub/sub; the ethereum backend
polls the contract's wave count.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  waveportal watch
  waveportal watch --output=json > waves.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	outputFormat, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := chain.Open(ctx, cfg, nil)
	if err != nil {
		return renderBackendError(cfg, err)
	}
	defer backend.Close()

	events, err := backend.Endpoint.Watch(ctx)
	if err != nil {
		return printer.Error("failed to watch waves", err.Error(), nil)
	}

	if outputFormat == watch.OutputFormatDefault {
		printer.Faint("Watching for waves (Ctrl+C to stop)...\n")
	}
	_, err = watch.Stream(ctx, events, printer.Out, outputFormat)
	return err
}
