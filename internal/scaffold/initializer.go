package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/dyluth/waveportal/internal/config"
	"github.com/dyluth/waveportal/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// Initialize writes a starter configuration for backend to path.
// If force is true, an existing file at path is replaced.
func Initialize(path, backend string, force bool) error {
	if force {
		if err := handleForce(path); err != nil {
			return err
		}
	}

	content, err := templateFor(backend)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// Validate created file
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("created %s is invalid: %w", path, err)
	}

	return nil
}

// handleForce removes an existing config if --force was specified
func handleForce(path string) error {
	if _, err := os.Stat(path); err == nil {
		printer.Warning("Removing existing %s...\n", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func templateFor(backend string) ([]byte, error) {
	var name string
	switch backend {
	case config.BackendDevnet, "":
		name = "templates/devnet.yml.tmpl"
	case config.BackendEthereum:
		name = "templates/ethereum.yml.tmpl"
	default:
		return nil, fmt.Errorf("unknown backend: %s (must be '%s' or '%s')", backend, config.BackendDevnet, config.BackendEthereum)
	}

	content, err := templatesFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", backend, err)
	}
	return content, nil
}

// PrintSuccess prints the success message with next steps
func PrintSuccess(path, backend string) {
	printer.Println("\n✅ Successfully initialized WavePortal!")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", path)
	printer.Println("\nNext steps:")
	if backend == config.BackendEthereum {
		printer.Printf("  1. Set contract.rpc_url and contract.address in %s\n", path)
		printer.Println("  2. Run 'waveportal connect' to authorize an account")
		printer.Println("  3. Run 'waveportal wave \"hello\"' to send your first wave")
		return
	}
	printer.Println("  1. Run 'waveportal devnet up' to start the local ledger")
	printer.Println("  2. Run 'waveportal connect' to authorize the dev account")
	printer.Println("  3. Run 'waveportal wave \"hello\"' to send your first wave")
}
