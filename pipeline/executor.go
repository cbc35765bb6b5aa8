package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/poiesic/homily/core"
)

// maxErrorLen bounds the error text kept on a stage result.
const maxErrorLen = 500

// ExecOptions modify a single stage execution.
type ExecOptions struct {
	// Force ignores the probe and always runs the action.
	Force bool

	// DryRun reports the stage as run without invoking the action.
	DryRun bool
}

// Executor runs one stage for one item. It never retries.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor that logs to logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger}
}

// Execute runs stage for itemID and classifies the outcome.
func (e *Executor) Execute(ctx context.Context, stage Stage, itemID string, opts ExecOptions) core.StageResult {
	result := core.StageResult{Stage: stage.Name}

	if !opts.Force {
		present, err := e.probe(ctx, stage, itemID)
		if err != nil {
			result.Outcome = core.OutcomeFailed
			result.Error = truncateError(fmt.Sprintf("probe: %v", err))
			return result
		}
		if present {
			result.Outcome = core.OutcomeSkipped
			return result
		}
	}

	if opts.DryRun {
		result.Outcome = core.OutcomeRanOK
		return result
	}

	inv := NewInvocation(itemID)
	start := time.Now()
	err := e.act(ctx, stage, inv)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Outcome = core.OutcomeRanOK
		result.Costs = inv.Costs()
	case errors.Is(err, ErrInputUnavailable):
		result.Outcome = core.OutcomeBypassed
		result.Error = truncateError(err.Error())
	default:
		result.Outcome = core.OutcomeFailed
		result.Error = truncateError(err.Error())
	}
	return result
}

func (e *Executor) probe(ctx context.Context, stage Stage, itemID string) (present bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("stage probe panicked", "stage", stage.Name, "item", itemID, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return stage.Probe(ctx, itemID)
}

func (e *Executor) act(ctx context.Context, stage Stage, inv *Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("stage action panicked", "stage", stage.Name, "item", inv.ItemID, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return stage.Action(ctx, inv)
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
