package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowRunner tracks how many runs are in flight.
type slowRunner struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (r *slowRunner) Run(ctx context.Context, itemID string, opts RunOptions) (*core.ArtifactSummary, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	r.mu.Lock()
	r.seen = append(r.seen, itemID)
	r.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	if itemID == "boom" {
		return nil, errors.New("store offline")
	}
	return &core.ArtifactSummary{ItemID: itemID, Costs: map[string]float64{core.CostAIContent: 0.5}, TotalCost: 0.5}, nil
}

func TestNewBatch(t *testing.T) {
	_, err := NewBatch(nil)
	assert.ErrorIs(t, err, ErrRunnerRequired)

	b, err := NewBatch(&slowRunner{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, b.Concurrency())

	b, err = NewBatch(&slowRunner{}, WithConcurrency(0))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Concurrency())
}

func TestBatch_SequentialRunsOneAtATime(t *testing.T) {
	runner := &slowRunner{}
	b, err := NewBatch(runner, WithConcurrency(1))
	require.NoError(t, err)

	report, err := b.Run(context.Background(), []string{"a", "b", "c"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), runner.peak.Load())
	assert.Equal(t, []string{"a", "b", "c"}, runner.seen)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Successful)
}

func TestBatch_ParallelIsBounded(t *testing.T) {
	runner := &slowRunner{}
	b, err := NewBatch(runner, WithConcurrency(2))
	require.NoError(t, err)

	ids := []string{"a", "b", "c", "d", "e", "f"}
	report, err := b.Run(context.Background(), ids, RunOptions{})
	require.NoError(t, err)

	assert.LessOrEqual(t, runner.peak.Load(), int32(2))
	assert.Equal(t, 6, report.Successful)

	// Reported in input order regardless of completion order
	for i, item := range report.Items {
		assert.Equal(t, ids[i], item.ItemID)
	}
	assert.InDelta(t, 3.0, report.Costs[core.CostAIContent], 1e-9)
	assert.Greater(t, report.TotalDuration, time.Duration(0))
}

func TestBatch_DeduplicatesIDs(t *testing.T) {
	runner := &slowRunner{}
	b, err := NewBatch(runner, WithConcurrency(1))
	require.NoError(t, err)

	report, err := b.Run(context.Background(), []string{"a", "b", "a", "b", "c"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, runner.seen)
	assert.Equal(t, 3, report.Total)
}

func TestBatch_EmptyInput(t *testing.T) {
	b, err := NewBatch(&slowRunner{})
	require.NoError(t, err)

	report, err := b.Run(context.Background(), nil, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Items)
}

func TestBatch_RunnerErrorIsReported(t *testing.T) {
	b, err := NewBatch(&slowRunner{}, WithConcurrency(3))
	require.NoError(t, err)

	report, err := b.Run(context.Background(), []string{"a", "boom", "c"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Items[1].Succeeded)
	assert.Equal(t, "store offline", report.Items[1].Error)
}

// One item's fatal failure does not affect the others.
func TestBatch_ItemsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "a", "b", "c")

	// acquire fails for b only
	reg := f.orch.Registry()
	acquire, _ := reg.Stage("acquire")
	wrapped := acquire
	wrapped.Action = func(ctx context.Context, inv *Invocation) error {
		if inv.ItemID == "b" {
			return errors.New("video unavailable")
		}
		return acquire.Action(ctx, inv)
	}
	stages := reg.Stages()
	stages[0] = wrapped
	reg, err := NewRegistry(stages...)
	require.NoError(t, err)
	orch, err := NewOrchestrator(reg, f.stores.States, f.stores.Items)
	require.NoError(t, err)

	f.world.failWith("transcribe", errTransient)

	b, err := NewBatch(orch, WithConcurrency(3))
	require.NoError(t, err)

	report, err := b.Run(context.Background(), []string{"a", "b", "c"}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)

	failed := report.Items[1]
	assert.Equal(t, "b", failed.ItemID)
	assert.False(t, failed.Succeeded)
	assert.Equal(t, "acquire", failed.FailedStep)
	assert.Equal(t, "video unavailable", failed.Error)

	for _, i := range []int{0, 2} {
		item := report.Items[i]
		assert.True(t, item.Succeeded, item.ItemID)
		require.Len(t, item.Warnings, 1, item.ItemID)
		assert.Equal(t, "transcribe", item.Warnings[0].Stage)
	}

	assert.Equal(t, core.StatusPublished, f.item(t, "a").Status)
	assert.Equal(t, core.StatusFailed, f.item(t, "b").Status)
	assert.Equal(t, core.StatusPublished, f.item(t, "c").Status)
}
