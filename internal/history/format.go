package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/timespec"
)

// Criteria selects records for display. All set criteria must match.
type Criteria struct {
	Window timespec.Range
	Author string // case-insensitive address match, empty = all
}

// HasFilters reports whether any criterion is set.
func (c Criteria) HasFilters() bool {
	return !c.Window.IsOpen() || c.Author != ""
}

// Matches reports whether rec satisfies every set criterion.
func (c Criteria) Matches(rec gateway.Record) bool {
	if !c.Window.Contains(rec.OccurredAt()) {
		return false
	}
	if c.Author != "" && !strings.EqualFold(c.Author, rec.Author) {
		return false
	}
	return true
}

// Filter returns the records matching c, preserving order.
func Filter(records []gateway.Record, c Criteria) []gateway.Record {
	if !c.HasFilters() {
		return copyRecords(records)
	}
	out := make([]gateway.Record, 0, len(records))
	for _, rec := range records {
		if c.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// FormatTable writes records as a table in ledger order and returns the
// number of rows written. now is used for the AGE column.
func FormatTable(w io.Writer, records []gateway.Record, now time.Time) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No waves yet\n")
		return 0
	}

	fmt.Fprintf(w, "%-4s %-13s %-20s %-8s %s\n", "#", "FROM", "TIME", "AGE", "MESSAGE")
	fmt.Fprintf(w, "%-4s %-13s %-20s %-8s %s\n",
		"----", "-------------", "--------------------", "--------", "----------------------------------------")

	for i, r := range records {
		fmt.Fprintf(w, "%-4d %-13s %-20s %-8s %s\n",
			i+1,
			formatAuthor(r.Author),
			r.OccurredAt().UTC().Format("2006-01-02 15:04:05"),
			formatAge(r.OccurredAt(), now),
			formatMessage(r.Message),
		)
	}

	noun := "wave"
	if len(records) != 1 {
		noun = "waves"
	}
	fmt.Fprintf(w, "\n%d %s\n", len(records), noun)
	return len(records)
}

// FormatJSONL writes one JSON object per record.
func FormatJSONL(w io.Writer, records []gateway.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatAuthor shortens an address to 0x1234…abcd.
func formatAuthor(addr string) string {
	if len(addr) <= 13 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// formatMessage shows the first non-empty line, truncated to 40 characters.
func formatMessage(msg string) string {
	var first string
	for _, line := range strings.Split(msg, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			first = trimmed
			break
		}
	}
	if first == "" {
		return "-"
	}

	runes := []rune(first)
	if len(runes) > 40 {
		return string(runes[:37]) + "..."
	}
	return first
}

func formatAge(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return "-"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
