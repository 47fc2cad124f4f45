package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultConfirmationTimeout bounds how long a write may stay pending.
const DefaultConfirmationTimeout = 2 * time.Minute

// Gateway issues contract calls on behalf of the session signer.
// At most one write is tracked at a time; overlapping submits are rejected.
type Gateway struct {
	contract       Contract
	signer         Signer
	confirmTimeout time.Duration
	now            func() time.Time

	mu         sync.Mutex
	submitting bool // slot reserved while the endpoint broadcasts
	inFlight   *PendingWrite
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithConfirmationTimeout overrides DefaultConfirmationTimeout.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.confirmTimeout = d
		}
	}
}

// WithClock sets the clock used for write timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New creates a gateway. contract may be nil when no endpoint is configured,
// in which case every call fails with ErrGatewayUnavailable.
func New(contract Contract, signer Signer, opts ...Option) *Gateway {
	g := &Gateway{
		contract:       contract,
		signer:         signer,
		confirmTimeout: DefaultConfirmationTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) available() bool {
	return g.contract != nil && g.signer != nil && g.signer.Available()
}

// FetchAllRecords reads every record from the contract in ledger order.
// A failed read is logged and returned as an empty slice with an error
// wrapping ErrReadFailure.
func (g *Gateway) FetchAllRecords(ctx context.Context) ([]Record, error) {
	if !g.available() {
		return nil, ErrGatewayUnavailable
	}

	raw, err := g.contract.GetAllRecords(ctx)
	if err != nil {
		log.Printf("[Gateway] Failed to read records: %v", err)
		return []Record{}, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	records := make([]Record, len(raw))
	for i, r := range raw {
		if r.Timestamp < 0 || r.Timestamp > MaxTimestamp {
			log.Printf("[Gateway] Record %d has out-of-range timestamp %d", i, r.Timestamp)
			return []Record{}, fmt.Errorf("%w: record %d timestamp %d out of range", ErrReadFailure, i, r.Timestamp)
		}
		records[i] = NewRecord(r)
	}
	return records, nil
}

// FetchTotalCount reads the contract's record count. Used for logging only.
func (g *Gateway) FetchTotalCount(ctx context.Context) (uint64, error) {
	if !g.available() {
		return 0, ErrGatewayUnavailable
	}

	count, err := g.contract.GetTotalCount(ctx)
	if err != nil {
		log.Printf("[Gateway] Failed to read total count: %v", err)
		return 0, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return count, nil
}

// InFlight returns the write currently awaiting confirmation, if any. A
// write still being broadcast is not returned.
func (g *Gateway) InFlight() *PendingWrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// SubmitRecord sends a write and returns as soon as it is broadcast. The
// returned PendingWrite settles when the transaction is mined, fails, or the
// confirmation timeout elapses. Cancelling ctx after SubmitRecord returns does
// not stop confirmation tracking.
func (g *Gateway) SubmitRecord(ctx context.Context, message string) (*PendingWrite, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if !g.available() {
		return nil, ErrGatewayUnavailable
	}
	from, ok := g.signer.Current()
	if !ok {
		return nil, fmt.Errorf("%w: no authorized identity", ErrGatewayUnavailable)
	}

	g.mu.Lock()
	if g.submitting || g.inFlight != nil {
		g.mu.Unlock()
		return nil, ErrWriteInFlight
	}
	g.submitting = true
	g.mu.Unlock()

	ref, err := g.contract.SubmitRecord(ctx, from, message)
	if err != nil {
		g.mu.Lock()
		g.submitting = false
		g.mu.Unlock()
		if errors.Is(err, ErrSubmissionRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	// Publish only a fully populated write.
	p := newPendingWrite()
	p.submitted(ref, g.now())
	g.mu.Lock()
	g.submitting = false
	g.inFlight = p
	g.mu.Unlock()

	log.Printf("[Gateway] Mining... %s", ref)

	go g.awaitConfirmation(context.WithoutCancel(ctx), p)
	return p, nil
}

func (g *Gateway) awaitConfirmation(ctx context.Context, p *PendingWrite) {
	waitCtx, cancel := context.WithTimeout(ctx, g.confirmTimeout)
	defer cancel()

	err := g.contract.WaitConfirmed(waitCtx, p.TransactionRef)
	switch {
	case err == nil:
		log.Printf("[Gateway] Mined -- %s", p.TransactionRef)
	case errors.Is(err, ErrConfirmationFailed):
		log.Printf("[Gateway] Transaction %s failed: %v", p.TransactionRef, err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w after %v", ErrConfirmationTimeout, g.confirmTimeout)
		log.Printf("[Gateway] Transaction %s: %v", p.TransactionRef, err)
	default:
		err = fmt.Errorf("%w: %v", ErrConfirmationFailed, err)
		log.Printf("[Gateway] Transaction %s failed: %v", p.TransactionRef, err)
	}

	g.release(p)
	p.settle(err, g.now())
}

func (g *Gateway) release(p *PendingWrite) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == p {
		g.inFlight = nil
	}
}
