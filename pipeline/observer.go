package pipeline

import (
	"context"

	"github.com/poiesic/homily/core"
)

// Observer receives hooks around stage and item execution, for metrics or
// progress display. Hooks must not block.
type Observer interface {
	BeforeStage(ctx context.Context, itemID string, stage Stage)
	AfterStage(ctx context.Context, itemID string, stage Stage, result core.StageResult)
	AfterItem(ctx context.Context, itemID string, summary *core.ArtifactSummary, err error)
}

type nopObserver struct{}

func (nopObserver) BeforeStage(context.Context, string, Stage)                      {}
func (nopObserver) AfterStage(context.Context, string, Stage, core.StageResult)     {}
func (nopObserver) AfterItem(context.Context, string, *core.ArtifactSummary, error) {}

// Observers fans hooks out to each observer in order.
type Observers []Observer

func (obs Observers) BeforeStage(ctx context.Context, itemID string, stage Stage) {
	for _, o := range obs {
		o.BeforeStage(ctx, itemID, stage)
	}
}

func (obs Observers) AfterStage(ctx context.Context, itemID string, stage Stage, result core.StageResult) {
	for _, o := range obs {
		o.AfterStage(ctx, itemID, stage, result)
	}
}

func (obs Observers) AfterItem(ctx context.Context, itemID string, summary *core.ArtifactSummary, err error) {
	for _, o := range obs {
		o.AfterItem(ctx, itemID, summary, err)
	}
}
