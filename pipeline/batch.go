package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/homily/core"
)

// Runner runs one item. *Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, itemID string, opts RunOptions) (*core.ArtifactSummary, error)
}

var _ Runner = (*Orchestrator)(nil)

// Batch runs many items through a Runner, sequentially or on a bounded
// worker pool, and aggregates a RunReport. One item's failure never stops
// the others.
type Batch struct {
	runner      Runner
	concurrency int
	logger      *slog.Logger
}

// NewBatch creates a batch coordinator. Concurrency defaults to
// DefaultConcurrency; use WithConcurrency to change it.
func NewBatch(runner Runner, opts ...Option) (*Batch, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Batch{
		runner:      runner,
		concurrency: o.concurrency,
		logger:      o.logger.With("component", "batch"),
	}, nil
}

// Concurrency returns the number of items run at once.
func (b *Batch) Concurrency() int {
	return b.concurrency
}

// Run processes itemIDs with opts and reports per-item outcomes in input
// order. Duplicate IDs run once.
func (b *Batch) Run(ctx context.Context, itemIDs []string, opts RunOptions) (*core.RunReport, error) {
	start := time.Now()
	ids := dedupe(itemIDs)
	reports := make([]core.ItemReport, len(ids))
	costs := make([]map[string]float64, len(ids))

	runOne := func(i int) {
		reports[i], costs[i] = b.runItem(ctx, ids[i], opts)
	}

	b.logger.Info("starting batch", "items", len(ids), "concurrency", b.concurrency, "dry_run", opts.DryRun)

	if b.concurrency <= 1 || len(ids) <= 1 {
		for i := range ids {
			runOne(i)
		}
	} else {
		pool, err := ants.NewPool(min(b.concurrency, len(ids)))
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for i := range ids {
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				runOne(i)
			}); err != nil {
				wg.Done()
				reports[i] = core.ItemReport{ItemID: ids[i], Error: fmt.Sprintf("submit: %v", err)}
			}
		}
		wg.Wait()
	}

	report := &core.RunReport{Items: make([]core.ItemReport, 0, len(ids)), Costs: map[string]float64{}}
	for i := range ids {
		report.Add(reports[i], costs[i])
	}
	report.TotalDuration = time.Since(start)

	b.logger.Info("batch finished",
		"total", report.Total,
		"successful", report.Successful,
		"failed", report.Failed,
		"duration", report.TotalDuration)
	return report, nil
}

func (b *Batch) runItem(ctx context.Context, itemID string, opts RunOptions) (core.ItemReport, map[string]float64) {
	start := time.Now()
	summary, err := b.runner.Run(ctx, itemID, opts)

	report := core.ItemReport{
		ItemID:    itemID,
		Succeeded: err == nil,
		Duration:  time.Since(start),
	}
	var costs map[string]float64
	if summary != nil {
		report.Warnings = summary.Warnings
		report.TotalCost = summary.TotalCost
		report.FailedStep = summary.FailedStep
		costs = summary.Costs
	}
	if err != nil {
		report.Error = err.Error()
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			report.FailedStep = stageErr.Stage
			report.Error = stageErr.Message
		}
		b.logger.Warn("item failed", "item", itemID, "failed_step", report.FailedStep, "err", report.Error)
	}
	return report, costs
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
