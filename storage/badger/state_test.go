package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestStateStore_LoadMissing(t *testing.T) {
	stores := setupStores(t)

	state, err := stores.States.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Nil(t, state)
}

func TestStateStore_CreateInitial(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	state, err := stores.States.CreateInitial(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, core.RunPending, state.Status)
	assert.Empty(t, state.CompletedSteps)
	assert.False(t, state.StartedAt.IsZero())

	loaded, err := stores.States.Load(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, state.ItemID, loaded.ItemID)
	assert.Equal(t, core.RunPending, loaded.Status)
}

func TestStateStore_CreateInitialReplacesPrevious(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	state, err := stores.States.CreateInitial(ctx, "abc123")
	require.NoError(t, err)
	state.MarkProcessing()
	state.MarkSucceeded("audio", time.Second)
	state.MarkFailed("publish", "503")
	require.NoError(t, stores.States.Save(ctx, state))

	fresh, err := stores.States.CreateInitial(ctx, "abc123")
	require.NoError(t, err)

	loaded, err := stores.States.Load(ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, loaded.CompletedSteps)
	assert.Empty(t, loaded.FailedStep)
	assert.Equal(t, fresh.Status, loaded.Status)
}

func TestStateStore_SaveIsWholeRecordReplace(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	state, err := stores.States.CreateInitial(ctx, "abc123")
	require.NoError(t, err)
	state.MarkSucceeded("audio", 2*time.Second)
	state.AddCosts(map[string]float64{core.CostEmbeddings: 0.001})
	require.NoError(t, stores.States.Save(ctx, state))

	replacement := core.NewPipelineState("abc123", time.Now())
	require.NoError(t, stores.States.Save(ctx, replacement))

	loaded, err := stores.States.Load(ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, loaded.CompletedSteps)
	assert.Zero(t, loaded.Costs[core.CostEmbeddings])
}

func TestStateStore_SaveRejectsInvalidState(t *testing.T) {
	stores := setupStores(t)

	bad := core.NewPipelineState("abc123", time.Now())
	bad.Status = core.RunFailed // failed without step or error
	err := stores.States.Save(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrFailureMismatch)
}

func TestStateStore_DeleteAndList(t *testing.T) {
	stores := setupStores(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := stores.States.CreateInitial(ctx, id)
		require.NoError(t, err)
	}

	states, err := stores.States.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, "a", states[0].ItemID)
	assert.Equal(t, "c", states[2].ItemID)

	require.NoError(t, stores.States.Delete(ctx, "b"))
	require.NoError(t, stores.States.Delete(ctx, "never-existed"))

	states, err = stores.States.List(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)
}
