//go:build integration

package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

// TestLedger_MinerAgainstRealRedis exercises the blocking mempool pop and
// pub/sub settlement path that miniredis only approximates.
func TestLedger_MinerAgainstRealRedis(t *testing.T) {
	redisURL := setupRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client, err := NewClient(opts, "integration")
	require.NoError(t, err)
	defer client.Close()

	minerCtx, stopMiner := context.WithCancel(ctx)
	minerDone := make(chan error, 1)
	go func() {
		minerDone <- NewMiner(client, MinerOptions{MaxMessageBytes: 16, BlockTime: 100 * time.Millisecond}).Run(minerCtx)
	}()

	sub, err := client.SubscribeWaves(ctx)
	require.NoError(t, err)
	defer sub.Close()

	ok, err := client.SubmitWave(ctx, waver, "gm")
	require.NoError(t, err)
	tooLong, err := client.SubmitWave(ctx, waver, "this message is far too long")
	require.NoError(t, err)

	settled, err := client.WaitSettled(ctx, ok.Ref)
	require.NoError(t, err)
	assert.Equal(t, TxStatusMined, settled.Status)

	settled, err = client.WaitSettled(ctx, tooLong.Ref)
	require.NoError(t, err)
	assert.Equal(t, TxStatusFailed, settled.Status)
	assert.Contains(t, settled.Reason, "limit is 16")

	select {
	case wave := <-sub.Events():
		assert.Equal(t, "gm", wave.Message)
	case <-ctx.Done():
		t.Fatal("timeout waiting for wave event")
	}

	waves, err := client.GetAllWaves(ctx)
	require.NoError(t, err)
	require.Len(t, waves, 1)
	total, err := client.GetTotalWaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	stopMiner()
	assert.NoError(t, <-minerDone)
}
