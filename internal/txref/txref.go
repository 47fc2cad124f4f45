// Package txref resolves short transaction references on the dev ledger.
package txref

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dyluth/waveportal/pkg/ledger"
)

// MinShortRefLength is the minimum required length for short ref prefixes.
const MinShortRefLength = 6

// refPattern admits only UUID characters, so a prefix cannot carry
// SCAN glob metacharacters.
var refPattern = regexp.MustCompile(`^[0-9a-f-]+$`)

// Scanner is the subset of the ledger client used for resolution.
type Scanner interface {
	GetTransaction(ctx context.Context, ref string) (*ledger.Transaction, error)
	ScanTransactions(ctx context.Context, prefix string) ([]string, error)
}

// Resolve expands a short ref prefix to a full transaction ref.
// A full UUID is checked for existence and returned as-is.
func Resolve(ctx context.Context, scanner Scanner, shortRef string) (string, error) {
	shortRef = strings.ToLower(strings.TrimSpace(shortRef))
	if !refPattern.MatchString(shortRef) {
		return "", fmt.Errorf("invalid transaction ref '%s': only hex digits and hyphens are allowed", shortRef)
	}

	if len(shortRef) == 36 && strings.Count(shortRef, "-") == 4 {
		if _, err := scanner.GetTransaction(ctx, shortRef); err != nil {
			if ledger.IsNotFound(err) {
				return "", &NotFoundError{ShortRef: shortRef}
			}
			return "", fmt.Errorf("failed to verify transaction: %w", err)
		}
		return shortRef, nil
	}

	if len(shortRef) < MinShortRefLength {
		return "", fmt.Errorf("short ref must be at least %d characters (got %d)", MinShortRefLength, len(shortRef))
	}

	matches, err := scanner.ScanTransactions(ctx, shortRef)
	if err != nil {
		return "", fmt.Errorf("failed to search for transaction: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortRef: shortRef}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortRef: shortRef, Matches: matches}
	}
}

// NotFoundError indicates no transaction matched the short ref.
type NotFoundError struct {
	ShortRef string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no transactions found matching '%s'", e.ShortRef)
}

// AmbiguousError indicates several transactions matched the short ref.
type AmbiguousError struct {
	ShortRef string
	Matches  []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ref '%s' matches %d transactions", e.ShortRef, len(e.Matches))
}

// FormatMatches lists the matching refs, up to 10 then "...and N more".
func FormatMatches(err *AmbiguousError) string {
	var b strings.Builder

	shown := len(err.Matches)
	if shown > 10 {
		shown = 10
	}
	for _, ref := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", ref)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}
	return b.String()
}
