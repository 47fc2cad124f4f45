package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable is returned when a call needs a wallet or signer that is not present.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrReadFailure wraps a failed read. Reads are non-fatal.
	ErrReadFailure = errors.New("read failed")

	// ErrSubmissionRejected is returned when a write is refused before broadcast.
	ErrSubmissionRejected = errors.New("submission rejected")

	// ErrEmptyMessage rejects a write with no message. No RPC is issued.
	ErrEmptyMessage = fmt.Errorf("%w: message is empty", ErrSubmissionRejected)

	// ErrWriteInFlight rejects a write while another one awaits confirmation.
	ErrWriteInFlight = errors.New("a write is already awaiting confirmation")

	// ErrConfirmationTimeout is returned when a broadcast write is not mined in time.
	ErrConfirmationTimeout = errors.New("confirmation timed out")

	// ErrConfirmationFailed is returned when a broadcast write was mined but did not succeed.
	ErrConfirmationFailed = errors.New("confirmation failed")
)

// WriteError describes a write that was broadcast but did not confirm.
type WriteError struct {
	TransactionRef string
	Err            error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.TransactionRef, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
