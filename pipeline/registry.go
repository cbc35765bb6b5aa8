package pipeline

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/poiesic/homily/core"
	"gopkg.in/yaml.v3"
)

// Registry is an ordered, immutable catalog of stages.
type Registry struct {
	stages []Stage
	index  map[string]int
}

// NewRegistry validates stages and builds a registry ordered by Stage.Order.
// Orders must be unique and contiguous from 1; names must be unique; every
// stage needs a probe and an action.
func NewRegistry(stages ...Stage) (*Registry, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrInvalidRegistry)
	}

	sorted := slices.Clone(stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	index := make(map[string]int, len(sorted))
	for i, s := range sorted {
		switch {
		case s.Name == "":
			return nil, fmt.Errorf("%w: stage at order %d has no name", ErrInvalidRegistry, s.Order)
		case s.Order != i+1:
			return nil, fmt.Errorf("%w: stage %q has order %d, want %d", ErrInvalidRegistry, s.Name, s.Order, i+1)
		case s.Probe == nil:
			return nil, fmt.Errorf("%w: stage %q has no probe", ErrInvalidRegistry, s.Name)
		case s.Action == nil:
			return nil, fmt.Errorf("%w: stage %q has no action", ErrInvalidRegistry, s.Name)
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage name %q", ErrInvalidRegistry, s.Name)
		}
		index[s.Name] = i
	}

	return &Registry{stages: sorted, index: index}, nil
}

// Stages returns the stages in execution order.
func (r *Registry) Stages() []Stage {
	return slices.Clone(r.stages)
}

// Names returns the stage names in execution order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Stage looks up a stage by name.
func (r *Registry) Stage(name string) (Stage, bool) {
	i, ok := r.index[name]
	if !ok {
		return Stage{}, false
	}
	return r.stages[i], true
}

// PlanMode selects how a run's stage list is computed.
type PlanMode int

const (
	// PlanAll runs every registered stage.
	PlanAll PlanMode = iota
	// PlanInclude runs only the named stages.
	PlanInclude
	// PlanExclude runs every stage except the named ones.
	PlanExclude
	// PlanResume runs from the previously failed stage onward.
	PlanResume
)

func (m PlanMode) String() string {
	switch m {
	case PlanAll:
		return "all"
	case PlanInclude:
		return "include"
	case PlanExclude:
		return "exclude"
	case PlanResume:
		return "resume"
	}
	return fmt.Sprintf("PlanMode(%d)", int(m))
}

// PlanRequest describes which stages a run should execute.
type PlanRequest struct {
	Mode   PlanMode
	Stages []string
}

// Plan returns the ordered stage names to execute. state is the item's
// stored Pipeline State and is only consulted for PlanResume.
//
// A resume without a state, or from a state that recorded no failure, plans
// every stage. A resume from a completed state returns ErrNothingToResume.
func (r *Registry) Plan(req PlanRequest, state *core.PipelineState) ([]string, error) {
	switch req.Mode {
	case PlanAll:
		return r.Names(), nil

	case PlanInclude, PlanExclude:
		set, err := r.nameSet(req.Stages)
		if err != nil {
			return nil, err
		}
		if req.Mode == PlanInclude && len(set) == 0 {
			return nil, fmt.Errorf("%w: include set is empty", ErrUnknownStage)
		}
		plan := make([]string, 0, len(r.stages))
		for _, s := range r.stages {
			if _, named := set[s.Name]; named == (req.Mode == PlanInclude) {
				plan = append(plan, s.Name)
			}
		}
		return plan, nil

	case PlanResume:
		if state == nil || state.FailedStep == "" {
			if state != nil && state.Status == core.RunCompleted {
				return nil, fmt.Errorf("%w: item %s completed", ErrNothingToResume, state.ItemID)
			}
			return r.Names(), nil
		}
		i, ok := r.index[state.FailedStep]
		if !ok {
			return nil, fmt.Errorf("%w: %q recorded as failed step", ErrUnknownStage, state.FailedStep)
		}
		names := r.Names()
		return names[i:], nil
	}
	return nil, fmt.Errorf("unsupported plan mode %s", req.Mode)
}

func (r *Registry) nameSet(names []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, n)
		}
		set[n] = struct{}{}
	}
	return set, nil
}

// Policy overrides declared stage properties. It is read from YAML:
//
//	stages:
//	  transcript:
//	    fatal: true
//	  publish:
//	    fatal: false
type Policy struct {
	Stages map[string]StagePolicy `yaml:"stages"`
}

// StagePolicy holds the overridable properties of one stage.
type StagePolicy struct {
	Fatal *bool `yaml:"fatal"`
}

// ParsePolicy decodes a YAML stage policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse stage policy: %w", err)
	}
	return &p, nil
}

// LoadPolicy reads a YAML stage policy from path.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePolicy(data)
}

// WithPolicy returns a new registry with p applied. Unknown stage names in p
// return ErrUnknownStage. A nil policy returns r unchanged.
func (r *Registry) WithPolicy(p *Policy) (*Registry, error) {
	if p == nil {
		return r, nil
	}
	stages := r.Stages()
	for name, sp := range p.Stages {
		i, ok := r.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in stage policy", ErrUnknownStage, name)
		}
		if sp.Fatal != nil {
			stages[i].Fatal = *sp.Fatal
		}
	}
	return NewRegistry(stages...)
}
