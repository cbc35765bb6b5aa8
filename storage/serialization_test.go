package storage

import (
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSerialization_PreservesFailureAndTimings(t *testing.T) {
	state := core.NewPipelineState("abc123", time.Date(2025, 4, 6, 9, 30, 0, 0, time.UTC))
	state.MarkSucceeded("audio", 1500*time.Millisecond)
	state.MarkFailed("transcript", "no captions available")
	state.AddCosts(map[string]float64{core.CostEmbeddings: 0.0004})

	data, err := MarshalState(state)
	require.NoError(t, err)

	got, err := UnmarshalState(data)
	require.NoError(t, err)
	assert.Equal(t, core.RunFailed, got.Status)
	assert.Equal(t, "transcript", got.FailedStep)
	assert.Equal(t, "no captions available", got.Error)
	assert.Equal(t, []string{"audio"}, got.CompletedSteps)
	assert.Equal(t, 1500*time.Millisecond, got.StepTimings["audio"])
	assert.Nil(t, got.CompletedAt)
	assert.InDelta(t, 0.0004, got.Costs[core.CostEmbeddings], 1e-12)
	assert.True(t, state.StartedAt.Equal(got.StartedAt))
}

func TestItemSerialization_OptionalContent(t *testing.T) {
	item := &core.Item{ID: "abc123", TenantID: "grace", Status: core.StatusPending}

	data, err := MarshalItem(item)
	require.NoError(t, err)
	got, err := UnmarshalItem(data)
	require.NoError(t, err)
	assert.Nil(t, got.Content)
	assert.Nil(t, got.PublishedAt)

	item.Content = &core.AIContent{Summary: "A sermon on rest.", Topics: []string{"rest"}}
	data, err = MarshalItem(item)
	require.NoError(t, err)
	got, err = UnmarshalItem(data)
	require.NoError(t, err)
	require.NotNil(t, got.Content)
	assert.Equal(t, "A sermon on rest.", got.Content.Summary)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	_, err := UnmarshalState([]byte("{not json"))
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = UnmarshalVector([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
