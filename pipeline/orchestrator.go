// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage"
)

// RunOptions control one item run.
type RunOptions struct {
	// Plan selects the stages to run. The zero value runs all stages.
	Plan PlanRequest

	// Force runs every planned stage even when its output is present.
	Force bool

	// DryRun reports what would run without invoking actions or
	// persisting state or item changes.
	DryRun bool
}

// Resume reports whether the run continues from a previous failure.
func (o RunOptions) Resume() bool {
	return o.Plan.Mode == PlanResume
}

// Orchestrator drives the stages of one item to a terminal state.
// Runs for different items may proceed concurrently; at most one run per
// item may be active at a time.
type Orchestrator struct {
	registry *Registry
	states   storage.StateStore
	items    storage.ItemStore
	executor *Executor
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator over registry and the stores.
func NewOrchestrator(registry *Registry, states storage.StateStore, items storage.ItemStore, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if states == nil {
		return nil, ErrStateStoreRequired
	}
	if items == nil {
		return nil, ErrItemStoreRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("component", "orchestrator")
	return &Orchestrator{
		registry: registry,
		states:   states,
		items:    items,
		executor: NewExecutor(logger),
		observer: o.observer,
		logger:   logger,
		now:      o.now,
	}, nil
}

// Registry returns the stage registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Run executes the planned stages for itemID.
//
// On success the state is completed, the item published and the summary
// returned. A fatal stage failure returns the summary together with a
// *StageError. Configuration errors (ErrUnknownStage, ErrNothingToResume)
// are returned before anything is written.
//
// Every run continues the stored Pipeline State, so completed steps and
// costs accumulate across runs. A stage that failed fatally before stays
// failed until a run gets it through; a selective plan that leaves it out
// ends with the same StageError. A cancelled run returns ErrRunInterrupted
// and marks the item failed.
func (o *Orchestrator) Run(ctx context.Context, itemID string, opts RunOptions) (*core.ArtifactSummary, error) {
	summary, err := o.run(ctx, itemID, opts)
	o.observer.AfterItem(ctx, itemID, summary, err)
	return summary, err
}

func (o *Orchestrator) run(ctx context.Context, itemID string, opts RunOptions) (*core.ArtifactSummary, error) {
	logger := o.logger.With("item", itemID)

	item, err := o.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: load item %s: %w", ErrItemStore, itemID, err)
	}

	prior, err := o.states.Load(ctx, itemID)
	if errors.Is(err, storage.ErrNotFound) {
		prior, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load state %s: %w", ErrStateStore, itemID, err)
	}

	plan, err := o.registry.Plan(opts.Plan, prior)
	if err != nil {
		return nil, err
	}

	// A fatal failure recorded by an earlier run stays outstanding until
	// this run gets that stage through.
	var outstanding, outstandingErr string
	if prior != nil && prior.Status == core.RunFailed {
		outstanding, outstandingErr = prior.FailedStep, prior.Error
	}

	state, err := o.startState(ctx, itemID, prior, opts.DryRun)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun {
		now := o.now()
		item, err = o.items.UpdateItem(ctx, itemID, func(it *core.Item) error {
			if it.ProcessingStartedAt == nil {
				it.ProcessingStartedAt = &now
			}
			it.ErrorMessage = ""
			return it.Transition(core.StatusProcessing)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: mark processing %s: %w", ErrItemStore, itemID, err)
		}
	}

	state.MarkProcessing()
	if err := o.save(ctx, state, opts.DryRun); err != nil {
		return nil, o.abort(ctx, itemID, err, opts.DryRun)
	}

	logger.Info("starting item run", "plan", plan, "mode", opts.Plan.Mode, "force", opts.Force, "dry_run", opts.DryRun)

	var (
		results  = make([]core.StageResult, 0, len(plan))
		warnings []core.StageWarning
		execOpts = ExecOptions{Force: opts.Force, DryRun: opts.DryRun}
	)

	for _, name := range plan {
		if ctx.Err() != nil {
			logger.Warn("run interrupted", "before_stage", name, "err", ctx.Err())
			return o.interrupt(ctx, item, state, results, warnings, opts.DryRun)
		}

		stage, _ := o.registry.Stage(name)
		o.observer.BeforeStage(ctx, itemID, stage)
		result := o.executor.Execute(ctx, stage, itemID, execOpts)
		o.observer.AfterStage(ctx, itemID, stage, result)
		results = append(results, result)

		if ctx.Err() != nil {
			logger.Warn("run interrupted", "after_stage", name, "err", ctx.Err())
			return o.interrupt(ctx, item, state, results, warnings, opts.DryRun)
		}

		switch result.Outcome {
		case core.OutcomeSkipped, core.OutcomeRanOK:
			state.MarkSucceeded(name, result.Duration)
			state.AddCosts(result.Costs)
			logger.Debug("stage done", "stage", name, "outcome", result.Outcome, "duration", result.Duration)

		case core.OutcomeBypassed:
			state.RecordTiming(name, result.Duration)
			logger.Info("stage bypassed", "stage", name, "reason", result.Error)

		case core.OutcomeFailed:
			state.RecordTiming(name, result.Duration)
			if stage.Fatal {
				return o.failFatal(ctx, item, state, results, warnings, name, result.Error, opts.DryRun)
			}
			warnings = append(warnings, core.StageWarning{Stage: name, Error: result.Error})
			logger.Warn("recoverable stage failed", "stage", name, "err", result.Error)
		}

		if err := o.save(ctx, state, opts.DryRun); err != nil {
			return nil, o.abort(ctx, itemID, err, opts.DryRun)
		}
	}

	if outstanding != "" && !succeeded(results, outstanding) {
		logger.Warn("earlier fatal failure still outstanding", "stage", outstanding)
		return o.failFatal(ctx, item, state, results, warnings, outstanding, outstandingErr, opts.DryRun)
	}

	now := o.now()
	state.MarkCompleted(now)
	if err := o.save(ctx, state, opts.DryRun); err != nil {
		return nil, o.abort(ctx, itemID, err, opts.DryRun)
	}

	if !opts.DryRun {
		item, err = o.items.UpdateItem(ctx, itemID, func(it *core.Item) error {
			it.PublishedAt = &now
			it.ErrorMessage = ""
			return it.Transition(core.StatusPublished)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: mark published %s: %w", ErrItemStore, itemID, err)
		}
	}

	summary := core.NewArtifactSummary(item, state, results, warnings)
	summary.DryRun = opts.DryRun
	logger.Info("item run completed",
		"completed_steps", state.CompletedSteps,
		"warnings", len(warnings),
		"total_cost", state.TotalCost())
	return summary, nil
}

// startState returns the state a run begins from. A stored state is
// carried forward so completed steps and costs from earlier runs are kept;
// only an item that never ran gets a newly created one.
func (o *Orchestrator) startState(ctx context.Context, itemID string, prior *core.PipelineState, dryRun bool) (*core.PipelineState, error) {
	if prior != nil {
		return prior.Clone(), nil
	}
	if dryRun {
		return core.NewPipelineState(itemID, o.now()), nil
	}
	state, err := o.states.CreateInitial(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: create state %s: %w", ErrStateStore, itemID, err)
	}
	return state, nil
}

// succeeded reports whether stage completed in results.
func succeeded(results []core.StageResult, stage string) bool {
	for _, r := range results {
		if r.Stage == stage && r.Succeeded() {
			return true
		}
	}
	return false
}

// interrupt ends a run whose context is done. The state stays at the last
// persisted boundary; the item is marked failed so it can be resumed or
// reprocessed.
func (o *Orchestrator) interrupt(
	ctx context.Context,
	item *core.Item,
	state *core.PipelineState,
	results []core.StageResult,
	warnings []core.StageWarning,
	dryRun bool,
) (*core.ArtifactSummary, error) {
	cause := fmt.Errorf("%w: %w", ErrRunInterrupted, ctx.Err())
	if !dryRun {
		updated, err := o.items.UpdateItem(context.WithoutCancel(ctx), item.ID, func(it *core.Item) error {
			it.ErrorMessage = cause.Error()
			return it.Transition(core.StatusFailed)
		})
		if err != nil {
			return nil, errors.Join(cause, fmt.Errorf("%w: mark failed %s: %w", ErrItemStore, item.ID, err))
		}
		item = updated
	}
	return core.NewArtifactSummary(item, state, results, warnings), cause
}

func (o *Orchestrator) failFatal(
	ctx context.Context,
	item *core.Item,
	state *core.PipelineState,
	results []core.StageResult,
	warnings []core.StageWarning,
	stage, message string,
	dryRun bool,
) (*core.ArtifactSummary, error) {
	itemID := state.ItemID
	o.logger.Error("fatal stage failed", "item", itemID, "stage", stage, "err", message)

	state.MarkFailed(stage, message)
	stageErr := &StageError{ItemID: itemID, Stage: stage, Message: message}

	if err := o.save(ctx, state, dryRun); err != nil {
		return nil, errors.Join(stageErr, o.abort(ctx, itemID, err, dryRun))
	}

	if !dryRun {
		updated, err := o.items.UpdateItem(ctx, itemID, func(it *core.Item) error {
			it.ErrorMessage = fmt.Sprintf("%s: %s", stage, message)
			return it.Transition(core.StatusFailed)
		})
		if err != nil {
			return nil, errors.Join(stageErr, fmt.Errorf("%w: mark failed %s: %w", ErrItemStore, itemID, err))
		}
		item = updated
	}

	summary := core.NewArtifactSummary(item, state, results, warnings)
	summary.DryRun = dryRun
	return summary, stageErr
}

func (o *Orchestrator) save(ctx context.Context, state *core.PipelineState, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := o.states.Save(ctx, state); err != nil {
		return fmt.Errorf("%w: save state %s: %w", ErrStateStore, state.ItemID, err)
	}
	return nil
}

// abort marks the item failed after a state store error. The item update is
// best effort; cause is always returned.
func (o *Orchestrator) abort(ctx context.Context, itemID string, cause error, dryRun bool) error {
	o.logger.Error("aborting item run", "item", itemID, "err", cause)
	if dryRun {
		return cause
	}
	_, err := o.items.UpdateItem(context.WithoutCancel(ctx), itemID, func(it *core.Item) error {
		it.ErrorMessage = cause.Error()
		return it.Transition(core.StatusFailed)
	})
	if err != nil {
		o.logger.Error("failed to mark item failed", "item", itemID, "err", err)
	}
	return cause
}
