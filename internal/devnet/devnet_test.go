package devnet

import (
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceFromContainer(t *testing.T) {
	t.Run("reads labels", func(t *testing.T) {
		labels := BuildLabels("demo", "run-1", "redis")
		labels[LabelRedisPort] = "6381"

		inst, err := instanceFromContainer(types.Container{
			ID:     "abc123",
			Names:  []string{"/waveportal-redis-demo"},
			Labels: labels,
			State:  "running",
		})
		require.NoError(t, err)
		assert.Equal(t, "demo", inst.Ledger)
		assert.Equal(t, "abc123", inst.ContainerID)
		assert.Equal(t, "waveportal-redis-demo", inst.ContainerName)
		assert.Equal(t, "run-1", inst.RunID)
		assert.Equal(t, 6381, inst.Port)
		assert.True(t, inst.Running())
		assert.Contains(t, inst.RedisURL(), ":6381")
	})

	t.Run("missing port label", func(t *testing.T) {
		_, err := instanceFromContainer(types.Container{
			ID:     "abc123",
			Labels: BuildLabels("demo", "run-1", "redis"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port label missing")
	})

	t.Run("invalid port label", func(t *testing.T) {
		labels := BuildLabels("demo", "run-1", "redis")
		labels[LabelRedisPort] = "redis"
		_, err := instanceFromContainer(types.Container{ID: "abc123", Labels: labels})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid Redis port")
	})

	t.Run("stopped container", func(t *testing.T) {
		labels := BuildLabels("demo", "run-1", "redis")
		labels[LabelRedisPort] = "6379"
		inst, err := instanceFromContainer(types.Container{ID: "abc123", Labels: labels, State: "exited"})
		require.NoError(t, err)
		assert.False(t, inst.Running())
	})
}

func TestRedisURL(t *testing.T) {
	url := RedisURL(6390)
	assert.Contains(t, []string{"redis://localhost:6390", "redis://host.docker.internal:6390"}, url)
}
