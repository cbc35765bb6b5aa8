package core

import (
	"slices"
	"time"
)

// RunStatus is the status of an item's Pipeline State.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Cost categories accumulated on a Pipeline State.
const (
	CostEmbeddings = "embeddings_usd"
	CostAIContent  = "ai_content_usd"
	CostFormatting = "formatting_usd"
)

// PipelineState is the durable progress record for one item. It is stored
// separately from the Item so progress survives a failed item write.
type PipelineState struct {
	ItemID         string                   `json:"item_id"`
	Status         RunStatus                `json:"status"`
	StartedAt      time.Time                `json:"started_at"`
	CompletedAt    *time.Time               `json:"completed_at"`
	CompletedSteps []string                 `json:"completed_steps"`
	FailedStep     string                   `json:"failed_step,omitempty"`
	Error          string                   `json:"error,omitempty"`
	StepTimings    map[string]time.Duration `json:"step_timings"`
	Costs          map[string]float64       `json:"costs"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewPipelineState returns a zeroed pending state for an item.
func NewPipelineState(itemID string, now time.Time) *PipelineState {
	return &PipelineState{
		ItemID:         itemID,
		Status:         RunPending,
		StartedAt:      now,
		CompletedSteps: []string{},
		StepTimings:    map[string]time.Duration{},
		Costs: map[string]float64{
			CostEmbeddings: 0,
			CostAIContent:  0,
			CostFormatting: 0,
		},
	}
}

// HasCompleted reports whether stage is in CompletedSteps.
func (s *PipelineState) HasCompleted(stage string) bool {
	return slices.Contains(s.CompletedSteps, stage)
}

// MarkSucceeded records a successful (or skipped) stage and clears any
// previous failure.
func (s *PipelineState) MarkSucceeded(stage string, took time.Duration) {
	if !s.HasCompleted(stage) {
		s.CompletedSteps = append(s.CompletedSteps, stage)
	}
	s.RecordTiming(stage, took)
	s.FailedStep = ""
	s.Error = ""
}

// MarkFailed moves the state to failed at stage. A completion of stage
// recorded by an earlier run no longer holds and is removed.
func (s *PipelineState) MarkFailed(stage, message string) {
	s.CompletedSteps = slices.DeleteFunc(s.CompletedSteps, func(name string) bool { return name == stage })
	s.Status = RunFailed
	s.FailedStep = stage
	s.Error = message
}

// MarkProcessing moves the state to processing and clears the last failure.
func (s *PipelineState) MarkProcessing() {
	s.Status = RunProcessing
	s.FailedStep = ""
	s.Error = ""
	s.CompletedAt = nil
}

// MarkCompleted moves the state to completed.
func (s *PipelineState) MarkCompleted(now time.Time) {
	s.Status = RunCompleted
	s.FailedStep = ""
	s.Error = ""
	s.CompletedAt = &now
}

// RecordTiming stores the duration of the latest attempt at stage.
func (s *PipelineState) RecordTiming(stage string, took time.Duration) {
	if s.StepTimings == nil {
		s.StepTimings = map[string]time.Duration{}
	}
	s.StepTimings[stage] = took
}

// AddCosts accumulates per-category spend.
func (s *PipelineState) AddCosts(costs map[string]float64) {
	if len(costs) == 0 {
		return
	}
	if s.Costs == nil {
		s.Costs = map[string]float64{}
	}
	for k, v := range costs {
		s.Costs[k] += v
	}
}

// TotalCost sums all cost categories.
func (s *PipelineState) TotalCost() float64 {
	var total float64
	for _, v := range s.Costs {
		total += v
	}
	return total
}

// Clone returns a deep copy of the state.
func (s *PipelineState) Clone() *PipelineState {
	c := *s
	c.CompletedSteps = slices.Clone(s.CompletedSteps)
	c.StepTimings = make(map[string]time.Duration, len(s.StepTimings))
	for k, v := range s.StepTimings {
		c.StepTimings[k] = v
	}
	c.Costs = make(map[string]float64, len(s.Costs))
	for k, v := range s.Costs {
		c.Costs[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
