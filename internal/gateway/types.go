// Package gateway performs all reads and writes against the wave contract
// and tracks the confirmation lifecycle of each write.
package gateway

import (
	"context"
	"math"
	"time"

	"github.com/dyluth/waveportal/internal/wallet"
)

// RawRecord is a record tuple as the contract returns it.
// Timestamp is in seconds since the Unix epoch.
type RawRecord struct {
	Author    string
	Timestamp int64
	Message   string
}

// Record is a display-ready wave. Records are immutable once read.
type Record struct {
	Author       string `json:"author"`
	OccurredAtMs int64  `json:"occurred_at_ms"` // Unix milliseconds
	Message      string `json:"message"`
}

// MaxTimestamp is the largest record timestamp, in seconds, that still
// fits in OccurredAtMs.
const MaxTimestamp int64 = math.MaxInt64 / 1000

// NewRecord converts a ledger tuple, scaling the timestamp from seconds to
// milliseconds. Callers check the timestamp against MaxTimestamp first.
func NewRecord(raw RawRecord) Record {
	return Record{
		Author:       raw.Author,
		OccurredAtMs: raw.Timestamp * 1000,
		Message:      raw.Message,
	}
}

// OccurredAt returns the record time.
func (r Record) OccurredAt() time.Time {
	return time.UnixMilli(r.OccurredAtMs)
}

// Contract is the remote, append-only wave contract.
//
// SubmitRecord returns once the write has been accepted for broadcast and
// yields a transaction reference. WaitConfirmed blocks until that
// transaction is mined, returning an error wrapping ErrConfirmationFailed if
// it was mined but did not succeed.
type Contract interface {
	GetAllRecords(ctx context.Context) ([]RawRecord, error)
	GetTotalCount(ctx context.Context) (uint64, error)
	SubmitRecord(ctx context.Context, from wallet.Identity, message string) (string, error)
	WaitConfirmed(ctx context.Context, txRef string) error
}

// Signer reports the session's wallet state. *wallet.Resolver implements it.
type Signer interface {
	Available() bool
	Current() (wallet.Identity, bool)
}
