package devnet

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Label keys used for devnet resources
const (
	LabelProject   = "waveportal.project"
	LabelLedger    = "waveportal.ledger"
	LabelRunID     = "waveportal.run_id"
	LabelComponent = "waveportal.component"
	LabelRedisPort = "waveportal.redis.port"
)

// MaxLedgerNameLength keeps container names DNS-compatible.
const MaxLedgerNameLength = 63

// LedgerNamePattern: lowercase alphanumeric, hyphens allowed but not at start/end.
var LedgerNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// BuildLabels creates the standard label set for devnet resources.
func BuildLabels(ledger, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject: "true",
		LabelLedger:  ledger,
		LabelRunID:   runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for a devnet run.
// Each invocation of `waveportal devnet up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// RedisContainerName returns the Redis container name for a ledger
func RedisContainerName(ledger string) string {
	return fmt.Sprintf("waveportal-redis-%s", ledger)
}

// ValidateLedgerName checks that a ledger name can be used in container names.
func ValidateLedgerName(name string) error {
	if name == "" {
		return fmt.Errorf("ledger name cannot be empty")
	}

	if len(name) > MaxLedgerNameLength {
		return fmt.Errorf("ledger name too long: %d characters (max: %d)", len(name), MaxLedgerNameLength)
	}

	if !LedgerNamePattern.MatchString(name) {
		return fmt.Errorf("invalid ledger name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
