// Package watch renders a live stream of confirmed waves.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
)

// OutputFormat selects how streamed waves are written.
type OutputFormat int

const (
	// OutputFormatDefault is one human-readable line per wave.
	OutputFormatDefault OutputFormat = iota
	// OutputFormatJSON is line-delimited JSON records.
	OutputFormatJSON
)

// ParseOutputFormat accepts "default" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "default":
		return OutputFormatDefault, nil
	case "json":
		return OutputFormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown format: %s", s)
	}
}

// Stream writes each wave from events until the channel closes or ctx ends.
// It returns the number of waves written.
func Stream(ctx context.Context, events <-chan gateway.RawRecord, w io.Writer, format OutputFormat) (int, error) {
	enc := json.NewEncoder(w)
	written := 0

	for {
		select {
		case <-ctx.Done():
			return written, nil

		case raw, ok := <-events:
			if !ok {
				return written, nil
			}

			record := gateway.NewRecord(raw)
			if format == OutputFormatJSON {
				if err := enc.Encode(record); err != nil {
					return written, fmt.Errorf("failed to write event: %w", err)
				}
			} else {
				fmt.Fprintf(w, "[%s] 👋 %s: %s\n",
					record.OccurredAt().UTC().Format(time.TimeOnly),
					record.Author,
					record.Message,
				)
			}
			written++
		}
	}
}
