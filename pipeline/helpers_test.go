package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/storage/badger"
	"github.com/stretchr/testify/require"
)

// world is a fake set of collaborators. Each stage "produces" an output
// flag per item; probes read the flags.
type world struct {
	mu       sync.Mutex
	outputs  map[string]map[string]bool
	calls    map[string]int
	failures map[string]error
	needs    map[string]string // stage -> upstream stage whose output it needs
	costs    map[string]map[string]float64
	hook     map[string]func(ctx context.Context)
}

func newWorld() *world {
	return &world{
		outputs:  map[string]map[string]bool{},
		calls:    map[string]int{},
		failures: map[string]error{},
		needs:    map[string]string{},
		costs:    map[string]map[string]float64{},
		hook:     map[string]func(ctx context.Context){},
	}
}

func (w *world) has(itemID, stage string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outputs[itemID][stage]
}

func (w *world) set(itemID, stage string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outputs[itemID] == nil {
		w.outputs[itemID] = map[string]bool{}
	}
	w.outputs[itemID][stage] = true
}

func (w *world) failWith(stage string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err == nil {
		delete(w.failures, stage)
		return
	}
	w.failures[stage] = err
}

func (w *world) callCount(stage string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[stage]
}

func (w *world) resetCalls() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = map[string]int{}
}

func (w *world) stage(order int, name string, fatal bool) Stage {
	return Stage{
		Order:       order,
		Name:        name,
		Description: name + " stage",
		Fatal:       fatal,
		Probe: func(ctx context.Context, itemID string) (bool, error) {
			return w.has(itemID, name), nil
		},
		Action: func(ctx context.Context, inv *Invocation) error {
			w.mu.Lock()
			w.calls[name]++
			err := w.failures[name]
			upstream := w.needs[name]
			costs := w.costs[name]
			hook := w.hook[name]
			w.mu.Unlock()

			if hook != nil {
				hook(ctx)
			}
			if upstream != "" && !w.has(inv.ItemID, upstream) {
				return InputUnavailable("%s output missing", upstream)
			}
			if err != nil {
				return err
			}
			for k, v := range costs {
				inv.AddCost(k, v)
			}
			w.set(inv.ItemID, name)
			return nil
		},
	}
}

// scenarioRegistry is acquire(fatal), transcribe, summarize, publish(fatal).
func scenarioRegistry(t *testing.T, w *world) *Registry {
	t.Helper()
	w.needs["summarize"] = "transcribe"
	reg, err := NewRegistry(
		w.stage(1, "acquire", true),
		w.stage(2, "transcribe", false),
		w.stage(3, "summarize", false),
		w.stage(4, "publish", true),
	)
	require.NoError(t, err)
	return reg
}

type fixture struct {
	world  *world
	stores *badger.Stores
	orch   *Orchestrator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	w := newWorld()
	orch, err := NewOrchestrator(scenarioRegistry(t, w), stores.States, stores.Items, opts...)
	require.NoError(t, err)
	return &fixture{world: w, stores: stores, orch: orch}
}

func (f *fixture) enroll(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.stores.Items.AddItem(context.Background(), &core.Item{ID: id, TenantID: "grace", Title: "Sermon " + id})
		require.NoError(t, err)
	}
}

func (f *fixture) state(t *testing.T, id string) *core.PipelineState {
	t.Helper()
	s, err := f.stores.States.Load(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (f *fixture) item(t *testing.T, id string) *core.Item {
	t.Helper()
	it, err := f.stores.Items.GetItem(context.Background(), id)
	require.NoError(t, err)
	return it
}

var errTransient = errors.New("service unavailable")
