package pipeline

import (
	"context"
	"maps"
	"sync"
)

// ProbeFunc reports whether a stage's output is already present for an item.
type ProbeFunc func(ctx context.Context, itemID string) (bool, error)

// ActionFunc performs a stage for one item, writing its results to the item
// record and reporting spend through inv.
type ActionFunc func(ctx context.Context, inv *Invocation) error

// Stage is one step of the enrichment pipeline.
type Stage struct {
	// Order is the 1-based position of the stage in the pipeline.
	Order int

	// Name identifies the stage in plans, state and reports.
	Name string

	// Description is shown to operators.
	Description string

	// Fatal stages halt the item run on failure; recoverable ones are
	// recorded as warnings and the run continues.
	Fatal bool

	// Probe is the idempotency check consulted before running Action.
	Probe ProbeFunc

	// Action does the work.
	Action ActionFunc
}

// Invocation carries per-execution context into a stage action.
type Invocation struct {
	ItemID string

	mu    sync.Mutex
	costs map[string]float64
}

// NewInvocation returns an invocation for itemID with no recorded costs.
func NewInvocation(itemID string) *Invocation {
	return &Invocation{ItemID: itemID}
}

// AddCost records usd of spend under category.
func (inv *Invocation) AddCost(category string, usd float64) {
	if usd == 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.costs == nil {
		inv.costs = map[string]float64{}
	}
	inv.costs[category] += usd
}

// Costs returns a copy of the recorded spend.
func (inv *Invocation) Costs() map[string]float64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if len(inv.costs) == 0 {
		return nil
	}
	return maps.Clone(inv.costs)
}
