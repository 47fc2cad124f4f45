package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Wave is one mined record. Timestamp is Unix seconds, as on chain.
type Wave struct {
	Waver     string `json:"waver"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// Validate checks that a wave is complete.
func (w *Wave) Validate() error {
	if w.Waver == "" {
		return fmt.Errorf("waver is required")
	}
	if w.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive, got %d", w.Timestamp)
	}
	return nil
}

// TxStatus is the lifecycle state of a transaction.
type TxStatus string

const (
	// TxStatusPending means the transaction is queued in the mempool.
	TxStatusPending TxStatus = "pending"

	// TxStatusMined means the wave was appended to the ledger.
	TxStatusMined TxStatus = "mined"

	// TxStatusFailed means the miner rejected the transaction (a revert).
	TxStatusFailed TxStatus = "failed"
)

// Validate checks the status value.
func (s TxStatus) Validate() error {
	switch s {
	case TxStatusPending, TxStatusMined, TxStatusFailed:
		return nil
	default:
		return fmt.Errorf("invalid transaction status: %s", s)
	}
}

// Settled reports whether the status is terminal.
func (s TxStatus) Settled() bool {
	return s == TxStatusMined || s == TxStatusFailed
}

// Transaction is a write submitted to the ledger.
type Transaction struct {
	Ref           string   `json:"ref"` // UUID
	From          string   `json:"from"`
	Message       string   `json:"message"`
	Status        TxStatus `json:"status"`
	SubmittedAtMs int64    `json:"submitted_at_ms"`
	SettledAtMs   int64    `json:"settled_at_ms,omitempty"`
	Reason        string   `json:"reason,omitempty"` // why a failed transaction was rejected
}

// Validate checks a transaction before it is stored.
func (t *Transaction) Validate() error {
	if _, err := uuid.Parse(t.Ref); err != nil {
		return fmt.Errorf("invalid ref: %w", err)
	}
	if t.From == "" {
		return fmt.Errorf("from is required")
	}
	if strings.TrimSpace(t.Message) == "" {
		return fmt.Errorf("message is required")
	}
	return t.Status.Validate()
}
