package commands

import (
	"strings"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/dyluth/waveportal/internal/session"
	"github.com/spf13/cobra"
)

var waveQuiet bool

var waveCmd = &cobra.Command{
	Use:   "wave <message>",
	Short: "Send a wave and wait for it to be mined",
	Long: `Send a wave with a message, wait until it is mined, then print the
refreshed history.

If no account is authorized yet, the wallet is asked for one first.
Only one wave can be in flight at a time.

Examples:
  waveportal wave "gm"
  waveportal wave hello from the terminal`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWave,
}

func init() {
	waveCmd.Flags().BoolVarP(&waveQuiet, "quiet", "q", false, "Do not print the history afterwards")
	rootCmd.AddCommand(waveCmd)
}

func runWave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	message := strings.Join(args, " ")

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
	if _, ok := controller.Identity(); !ok {
		id, err := controller.Connect(ctx)
		if err != nil {
			return renderError(err)
		}
		printer.Success("Connected: %s\n", id)
	}

	p, err := controller.Submit(ctx, message, withMiningOutput())
	if err != nil {
		return renderError(err)
	}
	printer.Mined(p.TransactionRef)

	if !waveQuiet {
		printer.Println()
		history.FormatTable(printer.Out, controller.History(), time.Now())
	}
	return nil
}

// withMiningOutput prints the transaction reference once it is broadcast.
func withMiningOutput() session.SubmitOption {
	return session.WithPendingHook(func(p *gateway.PendingWrite) {
		printer.Mining(p.TransactionRef)
	})
}
