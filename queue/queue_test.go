package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/storage"
	"github.com/poiesic/homily/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the order items ran in. Items listed in block wait
// until release is closed or their context ends.
type fakeRunner struct {
	mu      sync.Mutex
	order   []string
	fail    map[string]error
	block   map[string]bool
	release chan struct{}
	started chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		fail:    map[string]error{},
		block:   map[string]bool{},
		release: make(chan struct{}),
		started: make(chan string, 64),
	}
}

func (r *fakeRunner) Run(ctx context.Context, itemID string, opts pipeline.RunOptions) (*core.ArtifactSummary, error) {
	r.mu.Lock()
	r.order = append(r.order, itemID)
	err := r.fail[itemID]
	blocked := r.block[itemID]
	r.mu.Unlock()
	r.started <- itemID

	if blocked {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, errors.Join(pipeline.ErrRunInterrupted, ctx.Err())
		}
	}
	if err != nil {
		return nil, err
	}
	return &core.ArtifactSummary{ItemID: itemID, Warnings: []core.StageWarning{}}, nil
}

func (r *fakeRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func setupQueue(t *testing.T, runner pipeline.Runner, opts ...Option) (*Queue, *badger.Stores) {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	q, err := New(runner, stores.Items, stores.States, opts...)
	require.NoError(t, err)
	t.Cleanup(q.Stop)
	return q, stores
}

func TestNew_RequiresDependencies(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = New(nil, stores.Items, stores.States)
	assert.ErrorIs(t, err, ErrRunnerRequired)
	_, err = New(newFakeRunner(), nil, stores.States)
	assert.ErrorIs(t, err, ErrItemStoreRequired)
	_, err = New(newFakeRunner(), stores.Items, nil)
	assert.ErrorIs(t, err, ErrStateStoreRequired)
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		err  bool
	}{
		{"high", PriorityHigh, false},
		{"HIGH", PriorityHigh, false},
		{"", PriorityDefault, false},
		{"default", PriorityDefault, false},
		{"low", PriorityLow, false},
		{"urgent", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidPriority)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Priority {
	t.Helper()
	p, err := ParsePriority(s)
	require.NoError(t, err)
	return p
}

func TestQueue_PriorityThenFIFO(t *testing.T) {
	runner := newFakeRunner()
	q, _ := setupQueue(t, runner, WithWorkers(1))

	for _, e := range []struct {
		id string
		p  Priority
	}{
		{"low-1", PriorityLow},
		{"def-1", PriorityDefault},
		{"high-1", PriorityHigh},
		{"def-2", PriorityDefault},
		{"high-2", PriorityHigh},
	} {
		_, err := q.Enqueue(e.id, e.p)
		require.NoError(t, err)
	}
	assert.Equal(t, Depth{Total: 5, High: 2, Default: 2, Low: 1}, q.Depth())

	require.NoError(t, q.Start(context.Background()))
	q.Wait()

	assert.Equal(t, []string{"high-1", "high-2", "def-1", "def-2", "low-1"}, runner.ran())
	assert.Equal(t, Depth{}, q.Depth())
}

func TestQueue_DeduplicatesActiveItems(t *testing.T) {
	runner := newFakeRunner()
	runner.block["abc"] = true
	q, _ := setupQueue(t, runner, WithWorkers(1))

	first, err := q.Enqueue("abc", PriorityDefault)
	require.NoError(t, err)

	// Queued: duplicate returns the existing handle
	again, err := q.Enqueue("abc", PriorityHigh)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, first, again)

	require.NoError(t, q.Start(context.Background()))
	<-runner.started

	// Running: still deduplicated
	again, err = q.Enqueue("abc", PriorityDefault)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, first, again)

	close(runner.release)
	q.Wait()

	// Finished: a new job may be created
	next, err := q.Enqueue("abc", PriorityDefault)
	require.NoError(t, err)
	assert.NotEqual(t, first, next)
	q.Wait()
}

func TestQueue_BoundsConcurrency(t *testing.T) {
	runner := newFakeRunner()
	for _, id := range []string{"a", "b", "c"} {
		runner.block[id] = true
	}
	q, _ := setupQueue(t, runner, WithWorkers(2))

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(id, PriorityDefault)
		require.NoError(t, err)
	}
	require.NoError(t, q.Start(context.Background()))

	<-runner.started
	<-runner.started
	assert.Equal(t, 2, q.Running())
	assert.Equal(t, 1, q.Depth().Total)

	close(runner.release)
	q.Wait()
	assert.Len(t, runner.ran(), 3)
}

func TestQueue_JobLifecycle(t *testing.T) {
	runner := newFakeRunner()
	runner.fail["bad"] = &pipeline.StageError{ItemID: "bad", Stage: "acquire", Message: "video unavailable"}
	q, _ := setupQueue(t, runner)

	good, err := q.Enqueue("good", PriorityDefault)
	require.NoError(t, err)
	bad, err := q.Enqueue("bad", PriorityDefault)
	require.NoError(t, err)

	job, ok := q.Job(good)
	require.True(t, ok)
	assert.Equal(t, JobQueued, job.Status)
	assert.Nil(t, job.StartedAt)

	require.NoError(t, q.Start(context.Background()))
	q.Wait()

	job, ok = q.Job(good)
	require.True(t, ok)
	assert.Equal(t, JobSucceeded, job.Status)
	assert.True(t, job.Status.Finished())
	require.NotNil(t, job.Summary)
	assert.Equal(t, "good", job.Summary.ItemID)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)

	job, ok = q.Job(bad)
	require.True(t, ok)
	assert.Equal(t, JobFailed, job.Status)
	assert.Contains(t, job.Error, "video unavailable")

	assert.Len(t, q.Jobs(), 2)

	_, ok = q.Job("nope")
	assert.False(t, ok)
}

func TestQueue_RetentionPrunesFinishedJobs(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	runner := newFakeRunner()
	runner.fail["bad"] = errors.New("boom")
	q, _ := setupQueue(t, runner, WithClock(clock))

	good, err := q.Enqueue("good", PriorityDefault)
	require.NoError(t, err)
	bad, err := q.Enqueue("bad", PriorityDefault)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	q.Wait()

	advance(23 * time.Hour)
	assert.Equal(t, 0, q.Prune())

	advance(time.Hour)
	_, ok := q.Job(good)
	assert.False(t, ok, "succeeded job kept past result retention")
	_, ok = q.Job(bad)
	assert.True(t, ok, "failed job dropped before failure retention")

	advance(6 * 24 * time.Hour)
	assert.Equal(t, 1, q.Prune())
	assert.Empty(t, q.Jobs())
}

func TestQueue_TimeoutFailsJob(t *testing.T) {
	runner := newFakeRunner()
	runner.block["slow"] = true
	q, _ := setupQueue(t, runner, WithTimeout(50*time.Millisecond))
	ctx := context.Background()

	h, err := q.Enqueue("slow", PriorityDefault)
	require.NoError(t, err)
	require.NoError(t, q.Start(ctx))
	q.Wait()

	job, ok := q.Job(h)
	require.True(t, ok)
	assert.Equal(t, JobFailed, job.Status)
	assert.Contains(t, job.Error, "job timed out")
	assert.Contains(t, job.Error, "run interrupted")
}

// stallOnce returns a registry whose single fatal stage blocks until its
// context ends on the first call and succeeds afterwards.
func stallOnce(t *testing.T) *pipeline.Registry {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	done := map[string]bool{}
	reg, err := pipeline.NewRegistry(pipeline.Stage{
		Order:       1,
		Name:        "acquire",
		Description: "acquire stage",
		Fatal:       true,
		Probe: func(ctx context.Context, itemID string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return done[itemID], nil
		},
		Action: func(ctx context.Context, inv *pipeline.Invocation) error {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				<-ctx.Done()
				return ctx.Err()
			}
			mu.Lock()
			done[inv.ItemID] = true
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	return reg
}

func TestQueue_ReprocessAfterTimeout(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	ctx := context.Background()

	orch, err := pipeline.NewOrchestrator(stallOnce(t), stores.States, stores.Items)
	require.NoError(t, err)
	q, err := New(orch, stores.Items, stores.States, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	defer q.Stop()

	_, err = stores.Items.AddItem(ctx, &core.Item{ID: "abc", TenantID: "grace"})
	require.NoError(t, err)

	h, err := q.Enqueue("abc", PriorityDefault)
	require.NoError(t, err)
	require.NoError(t, q.Start(ctx))
	q.Wait()

	job, ok := q.Job(h)
	require.True(t, ok)
	assert.Equal(t, JobFailed, job.Status)

	item, err := stores.Items.GetItem(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, item.Status)
	assert.Contains(t, item.ErrorMessage, "run interrupted")

	h, err = q.Reprocess(ctx, "abc")
	require.NoError(t, err)
	q.Wait()

	job, ok = q.Job(h)
	require.True(t, ok)
	assert.Equal(t, JobSucceeded, job.Status)
	item, err = stores.Items.GetItem(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPublished, item.Status)
}

// hookedItems runs onUpdate before each item update.
type hookedItems struct {
	storage.ItemStore
	onUpdate func()
}

func (s *hookedItems) UpdateItem(ctx context.Context, id string, fn func(*core.Item) error) (*core.Item, error) {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	return s.ItemStore.UpdateItem(ctx, id, fn)
}

func TestQueue_ReprocessHoldsItemWhileResetting(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()
	ctx := context.Background()

	items := &hookedItems{ItemStore: stores.Items}
	runner := newFakeRunner()
	q, err := New(runner, items, stores.States)
	require.NoError(t, err)
	defer q.Stop()

	_, err = stores.Items.AddItem(ctx, &core.Item{ID: "abc", TenantID: "grace"})
	require.NoError(t, err)

	var raced error
	items.onUpdate = func() {
		_, raced = q.Enqueue("abc", PriorityHigh)
	}
	h, err := q.Reprocess(ctx, "abc")
	require.NoError(t, err)
	assert.ErrorIs(t, raced, ErrAlreadyQueued)
	assert.Len(t, q.Jobs(), 1)

	require.NoError(t, q.Start(ctx))
	q.Wait()
	job, ok := q.Job(h)
	require.True(t, ok)
	assert.Equal(t, JobSucceeded, job.Status)
	assert.Equal(t, []string{"abc"}, runner.ran())
}

func TestQueue_ReprocessReleasesItemOnError(t *testing.T) {
	q, _ := setupQueue(t, newFakeRunner())

	_, err := q.Reprocess(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = q.Enqueue("missing", PriorityDefault)
	assert.NoError(t, err)
}

func TestQueue_Reprocess(t *testing.T) {
	runner := newFakeRunner()
	q, stores := setupQueue(t, runner)
	ctx := context.Background()

	_, err := stores.Items.AddItem(ctx, &core.Item{ID: "abc", TenantID: "grace"})
	require.NoError(t, err)
	_, err = stores.Items.UpdateItem(ctx, "abc", func(it *core.Item) error {
		if err := it.Transition(core.StatusProcessing); err != nil {
			return err
		}
		it.ErrorMessage = "publish: 503"
		return it.Transition(core.StatusFailed)
	})
	require.NoError(t, err)
	state, err := stores.States.CreateInitial(ctx, "abc")
	require.NoError(t, err)
	state.MarkFailed("publish", "503")
	require.NoError(t, stores.States.Save(ctx, state))

	h, err := q.Reprocess(ctx, "abc")
	require.NoError(t, err)

	item, err := stores.Items.GetItem(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, item.Status)
	assert.Empty(t, item.ErrorMessage)

	_, err = stores.States.Load(ctx, "abc")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Reprocessing a queued item is a no-op
	again, err := q.Reprocess(ctx, "abc")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, h, again)

	require.NoError(t, q.Start(ctx))
	q.Wait()
	assert.Equal(t, []string{"abc"}, runner.ran())
}

func TestQueue_ReprocessMissingItem(t *testing.T) {
	q, _ := setupQueue(t, newFakeRunner())

	_, err := q.Reprocess(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, q.Jobs())
}

func TestQueue_StartStop(t *testing.T) {
	runner := newFakeRunner()
	q, _ := setupQueue(t, runner)

	require.NoError(t, q.Start(context.Background()))
	assert.ErrorIs(t, q.Start(context.Background()), ErrAlreadyStarted)

	q.Stop()
	q.Stop()

	_, err := q.Enqueue("abc", PriorityDefault)
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, q.Start(context.Background()), ErrStopped)

	// Wait returns once stopped
	q.Wait()
}

func TestQueue_StopWaitsForRunningJobs(t *testing.T) {
	runner := newFakeRunner()
	runner.block["a"] = true
	q, _ := setupQueue(t, runner, WithWorkers(1))

	ha, err := q.Enqueue("a", PriorityDefault)
	require.NoError(t, err)
	hb, err := q.Enqueue("b", PriorityDefault)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	<-runner.started

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(runner.release)
	}()
	q.Stop()

	job, _ := q.Job(ha)
	assert.Equal(t, JobSucceeded, job.Status)
	job, _ = q.Job(hb)
	assert.Equal(t, JobQueued, job.Status)
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	finished []JobStatus
}

func (c *countingObserver) JobStarted(Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingObserver) JobFinished(job Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, job.Status)
}

func TestQueue_Observer(t *testing.T) {
	runner := newFakeRunner()
	runner.fail["b"] = errors.New("boom")
	obs := &countingObserver{}
	q, _ := setupQueue(t, runner, WithWorkers(1), WithObserver(obs))

	_, err := q.Enqueue("a", PriorityHigh)
	require.NoError(t, err)
	_, err = q.Enqueue("b", PriorityLow)
	require.NoError(t, err)
	require.NoError(t, q.Start(context.Background()))
	q.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.started)
	assert.Equal(t, []JobStatus{JobSucceeded, JobFailed}, obs.finished)
}
