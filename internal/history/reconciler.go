// Package history owns the ordered, display-ready list of waves.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/waveportal/internal/gateway"
)

// Policy decides which of several overlapping refreshes wins.
type Policy int

const (
	// LatestIssued keeps the result of the most recently issued refresh.
	// Responses older than the last applied one are discarded.
	LatestIssued Policy = iota

	// LatestCompleted keeps whichever response arrives last, even if it was
	// issued earlier than the view it replaces.
	LatestCompleted
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "latest_issued":
		return LatestIssued, nil
	case "latest_completed":
		return LatestCompleted, nil
	default:
		return 0, fmt.Errorf("unknown refresh policy %q (must be 'latest_issued' or 'latest_completed')", s)
	}
}

func (p Policy) String() string {
	if p == LatestCompleted {
		return "latest_completed"
	}
	return "latest_issued"
}

// Fetcher reads all records. *gateway.Gateway implements it.
type Fetcher interface {
	FetchAllRecords(ctx context.Context) ([]gateway.Record, error)
}

// Reconciler is the single writer of the history view.
type Reconciler struct {
	fetcher Fetcher
	policy  Policy

	mu      sync.RWMutex
	issued  uint64
	applied uint64
	view    []gateway.Record
}

// NewReconciler creates a reconciler with an empty view.
func NewReconciler(fetcher Fetcher, policy Policy) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		policy:  policy,
		view:    []gateway.Record{},
	}
}

// Refresh reads all records and replaces the view wholesale. It is safe to
// call concurrently. A read failure is logged and leaves the view unchanged;
// only ErrGatewayUnavailable is returned to the caller.
func (r *Reconciler) Refresh(ctx context.Context) ([]gateway.Record, error) {
	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.mu.Unlock()

	records, err := r.fetcher.FetchAllRecords(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrReadFailure) {
			log.Printf("[History] Refresh #%d failed, keeping current view: %v", seq, err)
			return r.View(), nil
		}
		return r.View(), err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == LatestIssued && seq < r.applied {
		log.Printf("[History] Discarding stale refresh #%d (view is at #%d)", seq, r.applied)
		return copyRecords(r.view), nil
	}

	r.view = copyRecords(records)
	r.applied = seq
	return copyRecords(r.view), nil
}

// View returns a copy of the current history.
func (r *Reconciler) View() []gateway.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRecords(r.view)
}

// Len returns the number of records in the current view.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.view)
}

func copyRecords(records []gateway.Record) []gateway.Record {
	out := make([]gateway.Record, len(records))
	copy(out, records)
	return out
}
