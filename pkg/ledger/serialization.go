package ledger

import (
	"fmt"
	"strconv"
)

// TransactionToHash converts a Transaction to Redis hash fields.
func TransactionToHash(t *Transaction) map[string]interface{} {
	return map[string]interface{}{
		"ref":             t.Ref,
		"from":            t.From,
		"message":         t.Message,
		"status":          string(t.Status),
		"submitted_at_ms": t.SubmittedAtMs,
		"settled_at_ms":   t.SettledAtMs,
		"reason":          t.Reason,
	}
}

// HashToTransaction converts Redis hash fields back to a Transaction.
func HashToTransaction(hash map[string]string) (*Transaction, error) {
	submittedAt, err := strconv.ParseInt(hash["submitted_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid submitted_at_ms field: %w", err)
	}

	var settledAt int64
	if v := hash["settled_at_ms"]; v != "" {
		if settledAt, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid settled_at_ms field: %w", err)
		}
	}

	status := TxStatus(hash["status"])
	if err := status.Validate(); err != nil {
		return nil, err
	}

	return &Transaction{
		Ref:           hash["ref"],
		From:          hash["from"],
		Message:       hash["message"],
		Status:        status,
		SubmittedAtMs: submittedAt,
		SettledAtMs:   settledAt,
		Reason:        hash["reason"],
	}, nil
}
