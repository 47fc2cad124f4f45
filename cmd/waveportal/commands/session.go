package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/waveportal/internal/chain"
	"github.com/dyluth/waveportal/internal/config"
	"github.com/dyluth/waveportal/internal/devnet"
	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/printer"
	"github.com/dyluth/waveportal/internal/session"
	"github.com/dyluth/waveportal/internal/wallet"
)

// loadConfig reads the --config file and renders a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"configuration not found or invalid",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Create one with:\n  waveportal init"},
		)
	}
	return cfg, nil
}

// openSession connects the configured backend and assembles a controller.
// The caller must Close the returned backend.
func openSession(ctx context.Context, cfg *config.Config, prompter wallet.Prompter) (*session.Controller, *chain.Backend, error) {
	backend, err := chain.Open(ctx, cfg, prompter)
	if err != nil {
		return nil, nil, renderBackendError(cfg, err)
	}

	resolver := wallet.NewResolver(backend.Provider)
	gw := gateway.New(backend.Endpoint, resolver, gateway.WithConfirmationTimeout(cfg.ConfirmationTimeout()))
	reconciler := history.NewReconciler(gw, cfg.RefreshPolicy())

	return session.New(resolver, gw, reconciler), backend, nil
}

func renderBackendError(cfg *config.Config, err error) error {
	if cfg.Backend == config.BackendDevnet && errors.Is(err, devnet.ErrNotFound) {
		return printer.Error(
			"devnet not running",
			fmt.Sprintf("No dev ledger container found for ledger '%s'.", cfg.Devnet.Ledger),
			[]string{"Start it first:\n  waveportal devnet up"},
		)
	}
	return printer.Error("failed to connect to backend", err.Error(), nil)
}

// renderError prints a domain error with guidance and returns the error
// Cobra should see.
func renderError(err error) error {
	var writeErr *gateway.WriteError
	txContext := map[string]string{}
	if errors.As(err, &writeErr) {
		txContext["Transaction"] = writeErr.TransactionRef
	}

	switch {
	case errors.Is(err, wallet.ErrProviderUnavailable):
		return printer.Error(
			"no wallet available",
			"This backend has no wallet to ask for an account.",
			[]string{"Check the backend section of your configuration"},
		)
	case errors.Is(err, wallet.ErrAuthorizationDenied):
		return printer.Error(
			"authorization denied",
			"The wallet did not grant an account to this session.",
			[]string{"Retry and approve the request:\n  waveportal connect"},
		)
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return printer.Error(
			"not connected",
			"Reading and waving need an available wallet and an authorized account.",
			[]string{"Connect first:\n  waveportal connect"},
		)
	case errors.Is(err, gateway.ErrEmptyMessage):
		return printer.Error("empty message", "A wave needs a non-empty message.", []string{"waveportal wave \"hello\""})
	case errors.Is(err, gateway.ErrWriteInFlight):
		return printer.Error("wave already in flight", "Wait for the previous wave to be mined.", nil)
	case errors.Is(err, gateway.ErrSubmissionRejected):
		return printer.Error("wave rejected", err.Error(), nil)
	case errors.Is(err, gateway.ErrConfirmationTimeout):
		return printer.ErrorWithContext(
			"confirmation timed out",
			"The wave was broadcast but was not mined in time. It may still be mined later.",
			txContext,
			[]string{"Check the history later:\n  waveportal history", "Raise gateway.confirmation_timeout in your configuration"},
		)
	case errors.Is(err, gateway.ErrConfirmationFailed):
		return printer.ErrorWithContext("wave failed", err.Error(), txContext, nil)
	default:
		return err
	}
}

// terminalPrompter asks on the terminal before granting dev accounts.
type terminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *terminalPrompter) Confirm(ctx context.Context, accounts []string) (bool, error) {
	fmt.Fprintf(p.out, "Grant this session access to:\n")
	for _, account := range accounts {
		fmt.Fprintf(p.out, "  %s\n", account)
	}
	fmt.Fprintf(p.out, "Approve? [y/N] ")

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
