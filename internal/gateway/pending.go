package gateway

import (
	"context"
	"sync"
	"time"
)

// WriteState is the lifecycle state of a single write.
// idle → submitted → confirmed | failed. There is no cancellation.
type WriteState int

const (
	WriteIdle WriteState = iota
	WriteSubmitted
	WriteConfirmed
	WriteFailed
)

func (s WriteState) String() string {
	switch s {
	case WriteIdle:
		return "idle"
	case WriteSubmitted:
		return "submitted"
	case WriteConfirmed:
		return "confirmed"
	case WriteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PendingWrite is an in-flight write awaiting confirmation.
type PendingWrite struct {
	TransactionRef string
	SubmittedAt    time.Time

	mu        sync.Mutex
	state     WriteState
	err       error
	settledAt time.Time
	done      chan struct{}
}

func newPendingWrite() *PendingWrite {
	return &PendingWrite{
		state: WriteIdle,
		done:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (p *PendingWrite) State() WriteState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the terminal error of a failed write, or nil.
func (p *PendingWrite) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// SettledAt returns when the write reached a terminal state, or the zero time.
func (p *PendingWrite) SettledAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settledAt
}

// Done is closed once the write is confirmed or failed.
func (p *PendingWrite) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the write settles or ctx is done. Giving up on the wait
// does not stop confirmation tracking.
func (p *PendingWrite) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submitted runs before the write is handed to any other goroutine.
func (p *PendingWrite) submitted(ref string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TransactionRef = ref
	p.SubmittedAt = at
	p.state = WriteSubmitted
}

func (p *PendingWrite) settle(err error, at time.Time) {
	p.mu.Lock()
	if err != nil {
		p.state = WriteFailed
		p.err = &WriteError{TransactionRef: p.TransactionRef, Err: err}
	} else {
		p.state = WriteConfirmed
	}
	p.settledAt = at
	p.mu.Unlock()
	close(p.done)
}
