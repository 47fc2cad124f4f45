package devnet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("demo", "test-run-123", "redis")

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "demo", labels[LabelLedger])
	assert.Equal(t, "test-run-123", labels[LabelRunID])
	assert.Equal(t, "redis", labels[LabelComponent])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_NoComponent(t *testing.T) {
	labels := BuildLabels("demo", "test-run-456", "")

	assert.NotContains(t, labels, LabelComponent)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	runID1 := GenerateRunID()
	runID2 := GenerateRunID()

	_, err := uuid.Parse(runID1)
	assert.NoError(t, err)
	_, err = uuid.Parse(runID2)
	assert.NoError(t, err)

	assert.NotEqual(t, runID1, runID2)
}

func TestRedisContainerName(t *testing.T) {
	assert.Equal(t, "waveportal-redis-default", RedisContainerName("default"))
}

func TestValidateLedgerName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "simple", input: "default"},
		{name: "single character", input: "a"},
		{name: "hyphenated", input: "my-ledger-2"},
		{name: "empty", input: "", wantErr: "cannot be empty"},
		{name: "uppercase", input: "Demo", wantErr: "invalid ledger name"},
		{name: "leading hyphen", input: "-demo", wantErr: "invalid ledger name"},
		{name: "trailing hyphen", input: "demo-", wantErr: "invalid ledger name"},
		{name: "underscore", input: "my_ledger", wantErr: "invalid ledger name"},
		{name: "too long", input: string(make([]byte, 64)), wantErr: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLedgerName(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
