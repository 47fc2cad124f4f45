package commands

import (
	"fmt"
	"time"

	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/dyluth/waveportal/internal/timespec"
	"github.com/dyluth/waveportal/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	historyOutput string
	historySince  string
	historyUntil  string
	historyFrom   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show every wave in ledger order",
	Long: `Read all waves from the contract and print them oldest first.

Output Formats:
  table - Human-readable table (default)
  jsonl - One JSON object per wave

Time filters accept a duration ago (1h30m) or an RFC3339 timestamp.

Examples:
  # Waves from the last day
  waveportal history --since 24h

  # Waves sent by one account
  waveportal history --from 0x70997970C51812dc3A010C7d01b50e0d17dc79C8

  # Export as JSON lines
  waveportal history --output=jsonl > waves.jsonl`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "Output format (table or jsonl)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only waves at or after this time")
	historyCmd.Flags().StringVar(&historyUntil, "until", "", "Only waves before this time")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Only waves sent by this address")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if historyOutput != "table" && historyOutput != "jsonl" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", historyOutput),
			[]string{"Valid formats: table, jsonl"},
		)
	}

	now := time.Now()
	window, err := timespec.ParseRange(historySince, historyUntil, now)
	if err != nil {
		return printer.Error("invalid time filter", err.Error(), []string{"Use a duration like 2h or an RFC3339 timestamp"})
	}

	if historyFrom != "" {
		if _, err := wallet.ParseIdentity(historyFrom); err != nil {
			return printer.Error("invalid address", err.Error(), []string{"Pass a 0x-prefixed 20-byte address"})
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	controller, backend, err := openSession(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := controller.Activate(ctx); err != nil {
		return renderError(err)
	}

	records := history.Filter(controller.History(), history.Criteria{Window: window, Author: historyFrom})
	if historyOutput == "jsonl" {
		return history.FormatJSONL(printer.Out, records)
	}
	history.FormatTable(printer.Out, records, now)
	return nil
}
