// Package gatewaytest provides an in-memory gateway.Contract for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/wallet"
)

type pendingTx struct {
	from    wallet.Identity
	message string
	result  chan error
	settled bool
}

// Contract is an append-only in-memory ledger.
//
// By default each submitted write is mined immediately. With Manual set,
// writes stay pending until Mine or Fail is called for their reference.
type Contract struct {
	// Clock stamps mined records. Defaults to time.Now.
	Clock func() time.Time

	// Manual holds writes pending until Mine or Fail.
	Manual bool

	// ReadGate and SubmitGate, when set, hold GetAllRecords and SubmitRecord
	// until they are closed. The call is counted before it blocks.
	ReadGate   chan struct{}
	SubmitGate chan struct{}

	// ReadErr, SubmitErr and CountErr make the matching call fail.
	ReadErr   error
	SubmitErr error
	CountErr  error

	mu      sync.Mutex
	records []gateway.RawRecord
	pending map[string]*pendingTx
	nextTx  int
	reads   int
	submits int
}

// New returns a contract pre-loaded with records.
func New(records ...gateway.RawRecord) *Contract {
	return &Contract{
		records: append([]gateway.RawRecord(nil), records...),
		pending: make(map[string]*pendingTx),
	}
}

// GetAllRecords implements gateway.Contract.
func (c *Contract) GetAllRecords(ctx context.Context) ([]gateway.RawRecord, error) {
	c.mu.Lock()
	c.reads++
	gate := c.ReadGate
	c.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	return append([]gateway.RawRecord(nil), c.records...), nil
}

// GetTotalCount implements gateway.Contract.
func (c *Contract) GetTotalCount(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CountErr != nil {
		return 0, c.CountErr
	}
	return uint64(len(c.records)), nil
}

// SubmitRecord implements gateway.Contract.
func (c *Contract) SubmitRecord(ctx context.Context, from wallet.Identity, message string) (string, error) {
	c.mu.Lock()
	c.submits++
	gate := c.SubmitGate
	c.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubmitErr != nil {
		return "", c.SubmitErr
	}

	c.nextTx++
	ref := fmt.Sprintf("0x%064x", c.nextTx)
	tx := &pendingTx{from: from, message: message, result: make(chan error, 1)}
	c.pending[ref] = tx

	if !c.Manual {
		c.mineLocked(ref, tx)
	}
	return ref, nil
}

// WaitConfirmed implements gateway.Contract.
func (c *Contract) WaitConfirmed(ctx context.Context, txRef string) error {
	c.mu.Lock()
	tx, ok := c.pending[txRef]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown transaction %s", txRef)
	}

	select {
	case err := <-tx.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mine appends a pending write to the ledger and confirms it.
func (c *Contract) Mine(txRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx, ok := c.pending[txRef]; ok && !tx.settled {
		c.mineLocked(txRef, tx)
	}
}

// Fail settles a pending write without appending it.
func (c *Contract) Fail(txRef string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tx, ok := c.pending[txRef]; ok && !tx.settled {
		tx.settled = true
		tx.result <- err
	}
}

func (c *Contract) mineLocked(txRef string, tx *pendingTx) {
	now := time.Now
	if c.Clock != nil {
		now = c.Clock
	}
	c.records = append(c.records, gateway.RawRecord{
		Author:    tx.from.String(),
		Timestamp: now().Unix(),
		Message:   tx.message,
	})
	tx.settled = true
	tx.result <- nil
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reads returns how many GetAllRecords calls were made.
func (c *Contract) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Submits returns how many SubmitRecord calls were made.
func (c *Contract) Submits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submits
}

// StaticSigner is a gateway.Signer with a fixed identity.
type StaticSigner struct {
	Identity wallet.Identity
	Missing  bool // no wallet provider at all
}

// Available implements gateway.Signer.
func (s StaticSigner) Available() bool {
	return !s.Missing
}

// Current implements gateway.Signer.
func (s StaticSigner) Current() (wallet.Identity, bool) {
	return s.Identity, !s.Missing && !s.Identity.IsZero()
}
