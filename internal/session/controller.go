// Package session composes the identity resolver, ledger gateway and history
// reconciler into the one controller the presentation layer talks to.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/wallet"
)

// State is a point-in-time view of the session for rendering.
type State struct {
	Identity  wallet.Identity
	Connected bool
	History   []gateway.Record
	Pending   *gateway.PendingWrite
}

// Controller owns all session state. Identity is written only by the
// resolver, history only by the reconciler.
type Controller struct {
	resolver   *wallet.Resolver
	gateway    *gateway.Gateway
	reconciler *history.Reconciler
}

// New creates a controller from its three components.
func New(resolver *wallet.Resolver, gw *gateway.Gateway, reconciler *history.Reconciler) *Controller {
	return &Controller{
		resolver:   resolver,
		gateway:    gw,
		reconciler: reconciler,
	}
}

// Activate runs identity discovery and the initial history read
// concurrently and returns once both are done. Either may finish first.
// Only ErrGatewayUnavailable from the read is returned.
func (c *Controller) Activate(ctx context.Context) error {
	var (
		wg         sync.WaitGroup
		refreshErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		c.resolver.Discover(ctx)
	}()
	go func() {
		defer wg.Done()
		_, refreshErr = c.reconciler.Refresh(ctx)
	}()
	wg.Wait()

	return refreshErr
}

// Connect asks the wallet to authorize an identity.
func (c *Controller) Connect(ctx context.Context) (wallet.Identity, error) {
	return c.resolver.RequestAuthorization(ctx)
}

// Refresh re-reads the history.
func (c *Controller) Refresh(ctx context.Context) ([]gateway.Record, error) {
	return c.reconciler.Refresh(ctx)
}

// TotalCount returns the contract's record count.
func (c *Controller) TotalCount(ctx context.Context) (uint64, error) {
	return c.gateway.FetchTotalCount(ctx)
}

// SubmitOption configures a single Submit call.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	onPending func(*gateway.PendingWrite)
}

// WithPendingHook is called once the write has been broadcast, before the
// controller waits for confirmation.
func WithPendingHook(fn func(*gateway.PendingWrite)) SubmitOption {
	return func(o *submitOptions) {
		o.onPending = fn
	}
}

// Submit sends a wave, waits for it to be mined, then refreshes the history.
// The returned PendingWrite is settled unless ctx ended first.
func (c *Controller) Submit(ctx context.Context, message string, opts ...SubmitOption) (*gateway.PendingWrite, error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.logCount(ctx, "before")

	p, err := c.gateway.SubmitRecord(ctx, message)
	if err != nil {
		return nil, err
	}
	if o.onPending != nil {
		o.onPending(p)
	}

	if err := p.Wait(ctx); err != nil {
		return p, err
	}

	c.logCount(ctx, "after")

	if _, err := c.reconciler.Refresh(ctx); err != nil {
		return p, fmt.Errorf("wave confirmed but history refresh failed: %w", err)
	}
	return p, nil
}

// Identity returns the session identity, if any.
func (c *Controller) Identity() (wallet.Identity, bool) {
	return c.resolver.Current()
}

// History returns the current history view.
func (c *Controller) History() []gateway.Record {
	return c.reconciler.View()
}

// Snapshot returns the whole session state.
func (c *Controller) Snapshot() State {
	id, ok := c.resolver.Current()
	return State{
		Identity:  id,
		Connected: ok,
		History:   c.reconciler.View(),
		Pending:   c.gateway.InFlight(),
	}
}

func (c *Controller) logCount(ctx context.Context, when string) {
	count, err := c.gateway.FetchTotalCount(ctx)
	if err != nil {
		return
	}
	log.Printf("[Session] Total wave count %s submit: %d", when, count)
}
