//go:build integration
// +build integration

package devnet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpDown_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cli, err := NewClient(ctx)
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer cli.Close()

	ledger := "it-" + GenerateRunID()[:8]

	inst, err := Up(ctx, cli, UpOptions{Ledger: ledger, Image: "redis:7-alpine"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = Down(context.Background(), cli, ledger) })

	assert.Equal(t, ledger, inst.Ledger)
	assert.True(t, inst.Running())

	_, err = Up(ctx, cli, UpOptions{Ledger: ledger, Image: "redis:7-alpine"})
	assert.Error(t, err, "second Up for the same ledger must fail")

	url, err := ResolveRedisURL(ctx, cli, ledger)
	require.NoError(t, err)

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	require.Eventually(t, func() bool {
		return rdb.Ping(ctx).Err() == nil
	}, 30*time.Second, 200*time.Millisecond)

	removed, err := Down(ctx, cli, ledger)
	require.NoError(t, err)
	assert.Equal(t, inst.ContainerID, removed.ContainerID)

	_, err = Find(ctx, cli, ledger)
	assert.True(t, errors.Is(err, ErrNotFound))
}
