package queue

import (
	"errors"
	"time"

	"github.com/poiesic/homily/core"
)

var (
	// ErrAlreadyQueued is returned with the existing handle when the item
	// already has a queued or running job.
	ErrAlreadyQueued = errors.New("item already queued")

	// ErrInvalidPriority is returned for an unknown priority name.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrRunnerRequired is returned when the queue has no runner.
	ErrRunnerRequired = errors.New("runner is required")

	// ErrItemStoreRequired is returned when the queue has no item store.
	ErrItemStoreRequired = errors.New("item store is required")

	// ErrStateStoreRequired is returned when the queue has no state store.
	ErrStateStoreRequired = errors.New("state store is required")

	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("queue stopped")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("queue already started")

	// ErrJobTimeout is recorded on jobs that exceed the wall-clock timeout.
	ErrJobTimeout = errors.New("job timed out")
)

// JobHandle identifies an enqueued job.
type JobHandle string

// JobStatus is the lifecycle status of a job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Finished reports whether the job reached a terminal status.
func (s JobStatus) Finished() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is one asynchronous orchestrator run for an item.
type Job struct {
	Handle     JobHandle             `json:"handle"`
	ItemID     string                `json:"item_id"`
	Priority   Priority              `json:"priority"`
	Status     JobStatus             `json:"status"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Summary    *core.ArtifactSummary `json:"summary,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func (j *Job) snapshot() Job {
	c := *j
	return c
}

func (j Job) warnings() []core.StageWarning {
	if j.Summary == nil {
		return nil
	}
	return j.Summary.Warnings
}
