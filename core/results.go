package core

import "time"

// StageOutcome classifies a single stage execution.
type StageOutcome string

const (
	// OutcomeSkipped means the stage's output was already present.
	OutcomeSkipped StageOutcome = "skipped"
	// OutcomeRanOK means the stage action ran and succeeded (or a dry run).
	OutcomeRanOK StageOutcome = "ran_ok"
	// OutcomeFailed means the probe or action returned an error.
	OutcomeFailed StageOutcome = "failed"
	// OutcomeBypassed means the action declined to run because an upstream
	// stage did not produce its input.
	OutcomeBypassed StageOutcome = "bypassed"
)

// StageResult is the result of executing one stage for one item.
type StageResult struct {
	Stage    string             `json:"stage"`
	Outcome  StageOutcome       `json:"outcome"`
	Duration time.Duration      `json:"duration"`
	Error    string             `json:"error,omitempty"`
	Costs    map[string]float64 `json:"costs,omitempty"`
}

// Succeeded reports whether the stage counts as completed.
func (r StageResult) Succeeded() bool {
	return r.Outcome == OutcomeSkipped || r.Outcome == OutcomeRanOK
}

// StageWarning is a recoverable stage failure surfaced on a summary.
type StageWarning struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// ArtifactSummary collects what an item run produced.
type ArtifactSummary struct {
	ItemID    string    `json:"item_id"`
	TenantID  string    `json:"tenant_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	RunStatus RunStatus `json:"run_status"`
	DryRun    bool      `json:"dry_run,omitempty"`

	AudioURL        string      `json:"audio_url,omitempty"`
	DurationSeconds int         `json:"duration_seconds,omitempty"`
	HasTranscript   bool        `json:"has_transcript"`
	Search          SearchInfo  `json:"search"`
	Summary         string      `json:"summary,omitempty"`
	BigIdea         string      `json:"big_idea,omitempty"`
	Topics          []string    `json:"topics,omitempty"`
	GuideURL        string      `json:"guide_url,omitempty"`
	Publication     Publication `json:"publication"`

	CompletedSteps []string                 `json:"completed_steps"`
	FailedStep     string                   `json:"failed_step,omitempty"`
	Error          string                   `json:"error,omitempty"`
	StepTimings    map[string]time.Duration `json:"step_timings"`
	Costs          map[string]float64       `json:"costs"`
	TotalCost      float64                  `json:"total_cost"`
	Stages         []StageResult            `json:"stages"`
	Warnings       []StageWarning           `json:"warnings"`
}

// NewArtifactSummary assembles a summary from an item, its state and the
// per-stage results of the current run. item may be nil.
func NewArtifactSummary(item *Item, state *PipelineState, results []StageResult, warnings []StageWarning) *ArtifactSummary {
	s := &ArtifactSummary{
		Stages:   results,
		Warnings: warnings,
	}
	if s.Warnings == nil {
		s.Warnings = []StageWarning{}
	}
	if state != nil {
		s.ItemID = state.ItemID
		s.RunStatus = state.Status
		s.CompletedSteps = state.CompletedSteps
		s.FailedStep = state.FailedStep
		s.Error = state.Error
		s.StepTimings = state.StepTimings
		s.Costs = state.Costs
		s.TotalCost = state.TotalCost()
	}
	if item != nil {
		s.ItemID = item.ID
		s.TenantID = item.TenantID
		s.Title = item.Title
		s.Status = item.Status
		s.AudioURL = item.AudioURL
		s.DurationSeconds = item.DurationSeconds
		s.HasTranscript = len(item.Transcript) > 0
		s.Search = item.Search
		s.GuideURL = item.GuideURL
		s.Publication = item.Publication
		if item.Content != nil {
			s.Summary = item.Content.Summary
			s.BigIdea = item.Content.BigIdea
			s.Topics = item.Content.Topics
		}
	}
	return s
}

// ItemReport is one item's line in a RunReport.
type ItemReport struct {
	ItemID     string         `json:"item_id"`
	Succeeded  bool           `json:"succeeded"`
	Duration   time.Duration  `json:"duration"`
	FailedStep string         `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	Warnings   []StageWarning `json:"warnings,omitempty"`
	TotalCost  float64        `json:"total_cost"`
}

// RunReport aggregates the outcome of a batch invocation.
type RunReport struct {
	Total         int                `json:"total"`
	Successful    int                `json:"successful"`
	Failed        int                `json:"failed"`
	TotalDuration time.Duration      `json:"total_duration"`
	Items         []ItemReport       `json:"items"`
	Costs         map[string]float64 `json:"costs"`
}

// Add records one item's outcome on the report.
func (r *RunReport) Add(item ItemReport, costs map[string]float64) {
	r.Total++
	if item.Succeeded {
		r.Successful++
	} else {
		r.Failed++
	}
	r.Items = append(r.Items, item)
	if r.Costs == nil {
		r.Costs = map[string]float64{}
	}
	for k, v := range costs {
		r.Costs[k] += v
	}
}
