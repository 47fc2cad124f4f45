package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/waveportal/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	records []gateway.Record
	err     error
}

// scriptedFetcher blocks every call until the test releases it, so tests
// choose the order in which responses arrive.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   []chan fetchResult
	started chan int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{started: make(chan int, 10)}
}

func (f *scriptedFetcher) FetchAllRecords(ctx context.Context) ([]gateway.Record, error) {
	f.mu.Lock()
	ch := make(chan fetchResult, 1)
	f.calls = append(f.calls, ch)
	idx := len(f.calls) - 1
	f.mu.Unlock()

	f.started <- idx
	res := <-ch
	return res.records, res.err
}

func (f *scriptedFetcher) release(idx int, res fetchResult) {
	f.mu.Lock()
	ch := f.calls[idx]
	f.mu.Unlock()
	ch <- res
}

func (f *scriptedFetcher) awaitStart(t *testing.T) int {
	t.Helper()
	select {
	case idx := <-f.started:
		return idx
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for fetch to start")
		return -1
	}
}

// staticFetcher answers every call with the same result.
type staticFetcher struct {
	records []gateway.Record
	err     error
}

func (f *staticFetcher) FetchAllRecords(ctx context.Context) ([]gateway.Record, error) {
	return f.records, f.err
}

func records(messages ...string) []gateway.Record {
	out := make([]gateway.Record, len(messages))
	for i, m := range messages {
		out[i] = gateway.Record{Author: "0xabc", OccurredAtMs: int64(i+1) * 1000, Message: m}
	}
	return out
}

// overlappingRefreshes issues two refreshes, lets the second-issued one
// complete first, and returns the final view.
func overlappingRefreshes(t *testing.T, policy Policy) []gateway.Record {
	f := newScriptedFetcher()
	r := NewReconciler(f, policy)
	ctx := context.Background()

	var wg sync.WaitGroup
	refresh := func() {
		defer wg.Done()
		_, err := r.Refresh(ctx)
		assert.NoError(t, err)
	}

	wg.Add(1)
	go refresh()
	first := f.awaitStart(t)

	wg.Add(1)
	go refresh()
	second := f.awaitStart(t)

	f.release(second, fetchResult{records: records("a", "b", "c")})
	require.Eventually(t, func() bool { return r.Len() == 3 }, time.Second, 5*time.Millisecond)

	f.release(first, fetchResult{records: records("a", "b")})
	wg.Wait()

	return r.View()
}

func TestRefresh_OverlappingCalls(t *testing.T) {
	t.Run("latest issued wins by default", func(t *testing.T) {
		view := overlappingRefreshes(t, LatestIssued)
		assert.Equal(t, records("a", "b", "c"), view)
	})

	t.Run("latest completed lets the slow response overwrite", func(t *testing.T) {
		view := overlappingRefreshes(t, LatestCompleted)
		assert.Equal(t, records("a", "b"), view)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the view wholesale", func(t *testing.T) {
		f := &staticFetcher{records: records("one", "two", "three")}
		r := NewReconciler(f, LatestIssued)

		view, err := r.Refresh(ctx)
		require.NoError(t, err)
		assert.Len(t, view, 3)

		f.records = records("only")
		view, err = r.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, records("only"), view)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("preserves ledger order and duplicates", func(t *testing.T) {
		in := []gateway.Record{
			{Author: "0xb", OccurredAtMs: 3000, Message: "same"},
			{Author: "0xa", OccurredAtMs: 1000, Message: "same"},
			{Author: "0xa", OccurredAtMs: 1000, Message: "same"},
		}
		r := NewReconciler(&staticFetcher{records: in}, LatestIssued)

		view, err := r.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, in, view)
	})

	t.Run("read failure keeps the current view", func(t *testing.T) {
		f := &staticFetcher{records: records("kept")}
		r := NewReconciler(f, LatestIssued)
		_, err := r.Refresh(ctx)
		require.NoError(t, err)

		f.records = []gateway.Record{}
		f.err = fmt.Errorf("%w: timeout", gateway.ErrReadFailure)
		view, err := r.Refresh(ctx)
		assert.NoError(t, err)
		assert.Equal(t, records("kept"), view)
	})

	t.Run("unavailable gateway is surfaced", func(t *testing.T) {
		r := NewReconciler(&staticFetcher{err: gateway.ErrGatewayUnavailable}, LatestIssued)
		view, err := r.Refresh(ctx)
		assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)
		assert.Empty(t, view)
	})

	t.Run("view is a copy", func(t *testing.T) {
		r := NewReconciler(&staticFetcher{records: records("x")}, LatestIssued)
		_, err := r.Refresh(ctx)
		require.NoError(t, err)

		view := r.View()
		view[0].Message = "mutated"
		assert.Equal(t, "x", r.View()[0].Message)
	})

	t.Run("starts empty", func(t *testing.T) {
		r := NewReconciler(&staticFetcher{}, LatestIssued)
		assert.NotNil(t, r.View())
		assert.Empty(t, r.View())
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, LatestIssued, p)

	p, err = ParsePolicy("latest_completed")
	require.NoError(t, err)
	assert.Equal(t, LatestCompleted, p)
	assert.Equal(t, "latest_completed", p.String())

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}
