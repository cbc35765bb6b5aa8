package pipeline

import (
	"testing"
	"time"

	"github.com/poiesic/homily/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Validation(t *testing.T) {
	w := newWorld()

	tests := []struct {
		name   string
		stages []Stage
	}{
		{"empty", nil},
		{"gap in orders", []Stage{w.stage(1, "a", true), w.stage(3, "b", false)}},
		{"starts above one", []Stage{w.stage(2, "a", true)}},
		{"duplicate order", []Stage{w.stage(1, "a", true), w.stage(1, "b", false)}},
		{"duplicate name", []Stage{w.stage(1, "a", true), w.stage(2, "a", false)}},
		{"missing name", []Stage{w.stage(1, "", true)}},
		{"missing probe", []Stage{{Order: 1, Name: "a", Action: w.stage(1, "a", true).Action}}},
		{"missing action", []Stage{{Order: 1, Name: "a", Probe: w.stage(1, "a", true).Probe}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.stages...)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
		})
	}
}

func TestNewRegistry_SortsByOrder(t *testing.T) {
	w := newWorld()
	reg, err := NewRegistry(w.stage(2, "b", false), w.stage(1, "a", true), w.stage(3, "c", true))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
	s, ok := reg.Stage("b")
	require.True(t, ok)
	assert.Equal(t, 2, s.Order)
	_, ok = reg.Stage("zzz")
	assert.False(t, ok)

	// Stages returns a copy
	stages := reg.Stages()
	stages[0].Name = "mutated"
	assert.Equal(t, "a", reg.Names()[0])
}

func TestRegistry_Plan(t *testing.T) {
	reg := scenarioRegistry(t, newWorld())
	all := []string{"acquire", "transcribe", "summarize", "publish"}

	failedAt := func(stage string) *core.PipelineState {
		s := core.NewPipelineState("x", time.Now())
		s.MarkSucceeded("acquire", time.Second)
		s.MarkFailed(stage, "boom")
		return s
	}
	completed := core.NewPipelineState("x", time.Now())
	completed.MarkCompleted(time.Now())
	crashed := core.NewPipelineState("x", time.Now())
	crashed.MarkProcessing()

	tests := []struct {
		name  string
		req   PlanRequest
		state *core.PipelineState
		want  []string
		err   error
	}{
		{"all", PlanRequest{}, nil, all, nil},
		{"include keeps registry order", PlanRequest{Mode: PlanInclude, Stages: []string{"publish", "acquire"}}, nil, []string{"acquire", "publish"}, nil},
		{"exclude", PlanRequest{Mode: PlanExclude, Stages: []string{"summarize"}}, nil, []string{"acquire", "transcribe", "publish"}, nil},
		{"exclude nothing", PlanRequest{Mode: PlanExclude}, nil, all, nil},
		{"include unknown", PlanRequest{Mode: PlanInclude, Stages: []string{"transcode"}}, nil, nil, ErrUnknownStage},
		{"exclude unknown", PlanRequest{Mode: PlanExclude, Stages: []string{"transcode"}}, nil, nil, ErrUnknownStage},
		{"include empty", PlanRequest{Mode: PlanInclude}, nil, nil, ErrUnknownStage},
		{"resume from failure", PlanRequest{Mode: PlanResume}, failedAt("summarize"), []string{"summarize", "publish"}, nil},
		{"resume from first stage", PlanRequest{Mode: PlanResume}, failedAt("acquire"), all, nil},
		{"resume without state", PlanRequest{Mode: PlanResume}, nil, all, nil},
		{"resume after crash", PlanRequest{Mode: PlanResume}, crashed, all, nil},
		{"resume completed", PlanRequest{Mode: PlanResume}, completed, nil, ErrNothingToResume},
		{"resume unknown failed step", PlanRequest{Mode: PlanResume}, failedAt("render"), nil, ErrUnknownStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := reg.Plan(tt.req, tt.state)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan)
		})
	}
}

func TestRegistry_WithPolicy(t *testing.T) {
	reg := scenarioRegistry(t, newWorld())

	policy, err := ParsePolicy([]byte(`
stages:
  transcribe:
    fatal: true
  publish:
    fatal: false
  summarize: {}
`))
	require.NoError(t, err)

	updated, err := reg.WithPolicy(policy)
	require.NoError(t, err)

	s, _ := updated.Stage("transcribe")
	assert.True(t, s.Fatal)
	s, _ = updated.Stage("publish")
	assert.False(t, s.Fatal)
	s, _ = updated.Stage("acquire")
	assert.True(t, s.Fatal)

	// Original is untouched
	s, _ = reg.Stage("publish")
	assert.True(t, s.Fatal)

	same, err := reg.WithPolicy(nil)
	require.NoError(t, err)
	assert.Same(t, reg, same)
}

func TestRegistry_WithPolicyUnknownStage(t *testing.T) {
	reg := scenarioRegistry(t, newWorld())

	policy, err := ParsePolicy([]byte("stages:\n  transcode:\n    fatal: true\n"))
	require.NoError(t, err)

	_, err = reg.WithPolicy(policy)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestParsePolicy_Invalid(t *testing.T) {
	_, err := ParsePolicy([]byte("stages: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoadPolicy(t *testing.T) {
	_, err := LoadPolicy(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)
}
