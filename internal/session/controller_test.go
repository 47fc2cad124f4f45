package session

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/dyluth/waveportal/internal/gateway/gatewaytest"
	"github.com/dyluth/waveportal/internal/history"
	"github.com/dyluth/waveportal/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const account = "0x8afd794a5d1bcfa8327507b18c0984147dac7a91"

// newController wires a controller over an in-memory contract. A nil
// provider models a machine without any wallet.
func newController(t *testing.T, provider wallet.Provider, contract *gatewaytest.Contract) *Controller {
	t.Helper()
	resolver := wallet.NewResolver(provider)
	gw := gateway.New(contract, resolver, gateway.WithConfirmationTimeout(time.Second))
	return New(resolver, gw, history.NewReconciler(gw, history.LatestIssued))
}

func seeded() *gatewaytest.Contract {
	return gatewaytest.New(
		gateway.RawRecord{Author: account, Timestamp: 1700000000, Message: "gm"},
		gateway.RawRecord{Author: account, Timestamp: 1700000060, Message: "wagmi"},
	)
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("discovers identity and loads history", func(t *testing.T) {
		provider := wallet.NewStaticProvider([]string{account}, true, nil)
		c := newController(t, provider, seeded())

		require.NoError(t, c.Activate(ctx))

		state := c.Snapshot()
		assert.True(t, state.Connected)
		assert.False(t, state.Identity.IsZero())
		require.Len(t, state.History, 2)
		assert.Equal(t, "gm", state.History[0].Message)
		assert.Equal(t, int64(1700000000000), state.History[0].OccurredAtMs)
		assert.Nil(t, state.Pending)
	})

	t.Run("loads history without an authorized identity", func(t *testing.T) {
		provider := wallet.NewStaticProvider([]string{account}, false, nil)
		c := newController(t, provider, seeded())

		require.NoError(t, c.Activate(ctx))
		_, ok := c.Identity()
		assert.False(t, ok)
		assert.Len(t, c.History(), 2)
	})

	t.Run("no wallet leaves the session unauthenticated", func(t *testing.T) {
		contract := seeded()
		c := newController(t, nil, contract)

		err := c.Activate(ctx)
		assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)
		_, ok := c.Identity()
		assert.False(t, ok)
		assert.Empty(t, c.History())
		assert.Equal(t, 0, contract.Reads())
	})
}

// gatedProvider holds account discovery until release is closed.
type gatedProvider struct {
	accounts []string
	started  chan struct{}
	release  chan struct{}
}

func newGatedProvider(accounts ...string) *gatedProvider {
	return &gatedProvider{
		accounts: accounts,
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
}

func (p *gatedProvider) RequestAccounts(ctx context.Context, explicit bool) ([]string, error) {
	select {
	case p.started <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return p.accounts, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestActivate_CompletionOrder(t *testing.T) {
	// run starts Activate with both halves blocked, lets first finish and be
	// observed, then releases second.
	run := func(t *testing.T, discoveryFirst bool) State {
		provider := newGatedProvider(account)
		contract := seeded()
		contract.ReadGate = make(chan struct{})
		c := newController(t, provider, contract)

		done := make(chan error, 1)
		go func() { done <- c.Activate(context.Background()) }()

		<-provider.started
		require.Eventually(t, func() bool { return contract.Reads() == 1 }, time.Second, time.Millisecond)

		if discoveryFirst {
			close(provider.release)
			require.Eventually(t, func() bool { _, ok := c.Identity(); return ok }, time.Second, time.Millisecond)
			assert.Empty(t, c.History())
			close(contract.ReadGate)
		} else {
			close(contract.ReadGate)
			require.Eventually(t, func() bool { return len(c.History()) == 2 }, time.Second, time.Millisecond)
			_, ok := c.Identity()
			assert.False(t, ok)
			close(provider.release)
		}

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Activate did not return")
		}
		return c.Snapshot()
	}

	var discoveryFirst, readFirst State
	t.Run("discovery finishes first", func(t *testing.T) {
		discoveryFirst = run(t, true)
	})
	t.Run("history read finishes first", func(t *testing.T) {
		readFirst = run(t, false)
	})

	assert.True(t, discoveryFirst.Connected)
	assert.Equal(t, discoveryFirst, readFirst)
	require.Len(t, readFirst.History, 2)
	assert.Equal(t, "gm", readFirst.History[0].Message)
	assert.Nil(t, readFirst.Pending)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("no provider fails without rpc", func(t *testing.T) {
		contract := seeded()
		c := newController(t, nil, contract)

		_, err := c.Connect(ctx)
		assert.ErrorIs(t, err, wallet.ErrProviderUnavailable)
		assert.Equal(t, 0, contract.Reads())
		assert.Equal(t, 0, contract.Submits())
	})

	t.Run("grants identity", func(t *testing.T) {
		c := newController(t, wallet.NewStaticProvider([]string{account}, false, nil), seeded())

		id, err := c.Connect(ctx)
		require.NoError(t, err)
		current, ok := c.Identity()
		require.True(t, ok)
		assert.Equal(t, id, current)
	})
}

func TestTotalCount(t *testing.T) {
	ctx := context.Background()

	c := newController(t, wallet.NewStaticProvider([]string{account}, false, nil), seeded())
	count, err := c.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	contract := seeded()
	contract.CountErr = assert.AnError
	c = newController(t, wallet.NewStaticProvider([]string{account}, false, nil), contract)
	_, err = c.TotalCount(ctx)
	assert.ErrorIs(t, err, gateway.ErrReadFailure)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed wave appears last after refresh", func(t *testing.T) {
		c := newController(t, wallet.NewStaticProvider([]string{account}, true, nil), seeded())
		require.NoError(t, c.Activate(ctx))

		var hooked *gateway.PendingWrite
		p, err := c.Submit(ctx, "hi", WithPendingHook(func(p *gateway.PendingWrite) {
			hooked = p
		}))
		require.NoError(t, err)
		assert.Same(t, p, hooked)
		assert.Equal(t, gateway.WriteConfirmed, p.State())

		view := c.History()
		require.Len(t, view, 3)
		assert.Equal(t, "hi", view[len(view)-1].Message)
	})

	t.Run("requires connect first", func(t *testing.T) {
		contract := seeded()
		c := newController(t, wallet.NewStaticProvider([]string{account}, false, nil), contract)

		_, err := c.Submit(ctx, "hi")
		assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)
		assert.Equal(t, 0, contract.Submits())
	})

	t.Run("empty message never reaches the contract", func(t *testing.T) {
		contract := seeded()
		c := newController(t, wallet.NewStaticProvider([]string{account}, true, nil), contract)
		require.NoError(t, c.Activate(ctx))

		_, err := c.Submit(ctx, "")
		assert.ErrorIs(t, err, gateway.ErrEmptyMessage)
		assert.Equal(t, 0, contract.Submits())
	})

	t.Run("failed confirmation leaves history unchanged", func(t *testing.T) {
		contract := seeded()
		contract.Manual = true
		c := newController(t, wallet.NewStaticProvider([]string{account}, true, nil), contract)
		require.NoError(t, c.Activate(ctx))

		_, err := c.Submit(ctx, "hi", WithPendingHook(func(p *gateway.PendingWrite) {
			assert.Equal(t, gateway.WriteSubmitted, p.State())
			contract.Fail(p.TransactionRef, gateway.ErrConfirmationFailed)
		}))
		assert.ErrorIs(t, err, gateway.ErrConfirmationFailed)
		assert.Len(t, c.History(), 2)
	})
}
