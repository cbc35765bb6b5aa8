package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/storage"
)

// Queue runs single-item orchestrator jobs asynchronously in priority
// order. An item has at most one queued or running job at a time.
type Queue struct {
	runner pipeline.Runner
	items  storage.ItemStore
	states storage.StateStore

	workers    int
	timeout    time.Duration
	resultTTL  time.Duration
	failureTTL time.Duration
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	idle    *sync.Cond
	pending jobHeap
	seq     uint64
	jobs    map[JobHandle]*Job
	active  map[string]JobHandle
	running int
	started bool
	stopped bool

	notify chan struct{}
	stopCh chan struct{}
	pool   *ants.Pool
	wg     sync.WaitGroup
}

// New creates a queue. Jobs run through runner; items and states are used
// by Reprocess and to mark timed out items failed.
func New(runner pipeline.Runner, items storage.ItemStore, states storage.StateStore, opts ...Option) (*Queue, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	if items == nil {
		return nil, ErrItemStoreRequired
	}
	if states == nil {
		return nil, ErrStateStoreRequired
	}

	o := options{
		workers:    DefaultWorkers,
		timeout:    DefaultTimeout,
		resultTTL:  DefaultResultTTL,
		failureTTL: DefaultFailureTTL,
		logger:     slog.Default(),
		observer:   nopObserver{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue{
		runner:     runner,
		items:      items,
		states:     states,
		workers:    o.workers,
		timeout:    o.timeout,
		resultTTL:  o.resultTTL,
		failureTTL: o.failureTTL,
		observer:   o.observer,
		logger:     o.logger.With("component", "queue"),
		now:        o.now,
		jobs:       make(map[JobHandle]*Job),
		active:     make(map[string]JobHandle),
		notify:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	heap.Init(&q.pending)
	return q, nil
}

// Enqueue schedules a fresh run of itemID. If the item already has a
// queued or running job, its handle is returned with ErrAlreadyQueued.
func (q *Queue) Enqueue(itemID string, priority Priority) (JobHandle, error) {
	if itemID == "" {
		return "", fmt.Errorf("%w: empty item id", core.ErrInvalidItem)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrStopped
	}
	q.pruneLocked()
	if h, ok := q.active[itemID]; ok {
		q.mu.Unlock()
		return h, ErrAlreadyQueued
	}
	h := q.pushLocked(itemID, priority)
	q.mu.Unlock()

	q.logger.Debug("job enqueued", "item", itemID, "handle", h, "priority", priority)
	q.signal()
	return h, nil
}

// pushLocked queues a new job for itemID and marks the item active.
func (q *Queue) pushLocked(itemID string, priority Priority) JobHandle {
	job := &Job{
		Handle:     JobHandle(uuid.NewString()),
		ItemID:     itemID,
		Priority:   priority,
		Status:     JobQueued,
		EnqueuedAt: q.now(),
	}
	q.seq++
	heap.Push(&q.pending, &jobEntry{job: job, seq: q.seq})
	q.jobs[job.Handle] = job
	q.active[itemID] = job.Handle
	return job.Handle
}

// Reprocess resets itemID to pending, clears its error message and
// pipeline state, and enqueues it at default priority. The item is held
// active while it is reset, so a concurrent Enqueue gets ErrAlreadyQueued.
func (q *Queue) Reprocess(ctx context.Context, itemID string) (JobHandle, error) {
	if itemID == "" {
		return "", fmt.Errorf("%w: empty item id", core.ErrInvalidItem)
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrStopped
	}
	q.pruneLocked()
	if h, busy := q.active[itemID]; busy {
		q.mu.Unlock()
		return h, ErrAlreadyQueued
	}
	q.active[itemID] = resetting
	q.mu.Unlock()

	err := q.reset(ctx, itemID)

	q.mu.Lock()
	if err != nil || q.stopped {
		delete(q.active, itemID)
		q.mu.Unlock()
		if err == nil {
			err = ErrStopped
		}
		return "", err
	}
	h := q.pushLocked(itemID, PriorityDefault)
	q.mu.Unlock()

	q.logger.Info("item reset for reprocessing", "item", itemID, "handle", h)
	q.signal()
	return h, nil
}

// resetting marks an item held by Reprocess before its job exists.
const resetting JobHandle = ""

func (q *Queue) reset(ctx context.Context, itemID string) error {
	_, err := q.items.UpdateItem(ctx, itemID, func(it *core.Item) error {
		it.ErrorMessage = ""
		if it.Status == core.StatusPending {
			return nil
		}
		return it.Transition(core.StatusPending)
	})
	if err != nil {
		return fmt.Errorf("reset item %s: %w", itemID, err)
	}
	if err := q.states.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("reset state %s: %w", itemID, err)
	}
	return nil
}

// Start launches the dispatcher. Jobs enqueued before Start wait for it.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}
	if q.started {
		return ErrAlreadyStarted
	}

	pool, err := ants.NewPool(q.workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	q.pool = pool
	q.started = true

	q.wg.Add(1)
	go q.dispatch(ctx)
	q.logger.Info("queue started", "workers", q.workers, "timeout", q.timeout)
	return nil
}

// Stop stops dispatching and waits for running jobs to finish. Jobs still
// queued stay queued.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	if q.pool != nil {
		q.pool.Release()
	}

	q.mu.Lock()
	q.idle.Broadcast()
	q.mu.Unlock()
	q.logger.Info("queue stopped")
}

// Wait blocks until nothing is queued or running, or until the queue is
// stopped and its running jobs are done.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running > 0 || (q.pending.Len() > 0 && !q.stopped) {
		q.idle.Wait()
	}
}

// Job returns a snapshot of the job with handle h.
func (q *Queue) Job(h JobHandle) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	job, ok := q.jobs[h]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Jobs returns snapshots of every retained job, oldest first.
func (q *Queue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	out := make([]Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, job.snapshot())
	}
	slices.SortFunc(out, func(a, b Job) int {
		return a.EnqueuedAt.Compare(b.EnqueuedAt)
	})
	return out
}

// Depth reports queued jobs by priority.
func (q *Queue) Depth() Depth {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.depth()
}

// Running returns the number of jobs in flight.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Prune drops finished jobs past their retention and returns how many.
func (q *Queue) Prune() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pruneLocked()
}

func (q *Queue) pruneLocked() int {
	now := q.now()
	removed := 0
	for h, job := range q.jobs {
		if job.FinishedAt == nil {
			continue
		}
		ttl := q.resultTTL
		if job.Status == JobFailed {
			ttl = q.failureTTL
		}
		if now.Sub(*job.FinishedAt) >= ttl {
			delete(q.jobs, h)
			removed++
		}
	}
	return removed
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) dispatch(ctx context.Context) {
	defer q.wg.Done()
	for {
		job := q.next(ctx)
		if job == nil {
			return
		}
		q.wg.Add(1)
		err := q.pool.Submit(func() {
			defer q.wg.Done()
			q.execute(ctx, job)
		})
		if err != nil {
			q.wg.Done()
			q.finish(job, nil, fmt.Errorf("submit job: %w", err))
		}
	}
}

// next blocks until a job can start and a worker is free, then marks it
// running. Returns nil once the queue is stopped or ctx is done.
func (q *Queue) next(ctx context.Context) *Job {
	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return nil
		}
		if q.pending.Len() > 0 && q.running < q.workers {
			entry := heap.Pop(&q.pending).(*jobEntry)
			q.running++
			now := q.now()
			entry.job.Status = JobRunning
			entry.job.StartedAt = &now
			snap := entry.job.snapshot()
			q.mu.Unlock()

			q.observer.JobStarted(snap)
			return entry.job
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-q.stopCh:
			return nil
		case <-q.notify:
		}
	}
}

func (q *Queue) execute(ctx context.Context, job *Job) {
	logger := q.logger.With("item", job.ItemID, "handle", job.Handle)
	logger.Info("job started", "priority", job.Priority)

	runCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	summary, err := q.runner.Run(runCtx, job.ItemID, pipeline.RunOptions{})
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %w", ErrJobTimeout, q.timeout, err)
	}
	q.finish(job, summary, err)
}

func (q *Queue) finish(job *Job, summary *core.ArtifactSummary, err error) {
	q.mu.Lock()
	now := q.now()
	job.FinishedAt = &now
	job.Summary = summary
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
	} else {
		job.Status = JobSucceeded
	}
	snap := job.snapshot()
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("job failed", "item", job.ItemID, "handle", job.Handle, "err", err)
	} else {
		q.logger.Info("job succeeded", "item", job.ItemID, "handle", job.Handle, "warnings", len(snap.warnings()))
	}
	q.observer.JobFinished(snap)

	// The worker slot is released last so Wait observes completed hooks.
	q.mu.Lock()
	q.running--
	if q.active[job.ItemID] == job.Handle {
		delete(q.active, job.ItemID)
	}
	q.idle.Broadcast()
	q.mu.Unlock()
	q.signal()
}
