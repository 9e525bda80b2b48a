package workflow

import (
	"fmt"
	"math"
	"time"
)

// StageOutput is the canonical result schema every stage publishes.
// Signal carries a directional read (bullish/bearish/neutral) or an action
// verb (buy/sell/hold/reduce) depending on the stage. Details holds
// stage-specific extras such as indicator metrics or position limits.
type StageOutput struct {
	Agent      string         `json:"agent"`
	Signal     string         `json:"signal"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Details    map[string]any `json:"details,omitempty"`
}

var validSignals = map[string]bool{
	"bullish": true,
	"bearish": true,
	"neutral": true,
	"buy":     true,
	"sell":    true,
	"hold":    true,
	"reduce":  true,
}

// Validate rejects outputs that violate the stage contract so bad values
// stop at the module boundary instead of flowing downstream.
func (o StageOutput) Validate() error {
	if o.Agent == "" {
		return fmt.Errorf("stage output missing agent name")
	}
	if !validSignals[o.Signal] {
		return fmt.Errorf("stage %s: invalid signal %q", o.Agent, o.Signal)
	}
	if math.IsNaN(o.Confidence) || o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("stage %s: confidence %v outside [0,1]", o.Agent, o.Confidence)
	}
	return nil
}

// Delta is the partial state a stage hands back: at most one output plus
// a patch of context keys to merge last-writer-wins.
type Delta struct {
	Output  *StageOutput
	Context map[string]any
}

// RunMetadata identifies a run for logging and event publication.
type RunMetadata struct {
	RunID     string    `json:"run_id"`
	Ticker    string    `json:"ticker"`
	Verbose   bool      `json:"verbose"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is the immutable view of workflow state a stage reads. Each
// stage receives its own copy, so concurrent stages never share mutable
// data. Context values are read-only by convention.
type Snapshot struct {
	Run     RunMetadata
	outputs []StageOutput
	context map[string]any
}

// NewSnapshot builds a standalone snapshot. Stage implementations use it
// to exercise their logic outside a running graph.
func NewSnapshot(meta RunMetadata, outputs []StageOutput, context map[string]any) *Snapshot {
	outs := make([]StageOutput, len(outputs))
	copy(outs, outputs)
	ctx := make(map[string]any, len(context))
	for k, v := range context {
		ctx[k] = v
	}
	return &Snapshot{Run: meta, outputs: outs, context: ctx}
}

// Output returns the most recent published output for a stage name.
func (s *Snapshot) Output(name string) (StageOutput, bool) {
	for i := len(s.outputs) - 1; i >= 0; i-- {
		if s.outputs[i].Agent == name {
			return s.outputs[i], true
		}
	}
	return StageOutput{}, false
}

// Require is Output with a fatal error when the dependency is absent.
func (s *Snapshot) Require(stage, dep string) (StageOutput, error) {
	out, ok := s.Output(dep)
	if !ok {
		return StageOutput{}, &MissingDependencyError{Stage: stage, Dep: dep}
	}
	return out, nil
}

// Context returns a run-scoped fact published by an earlier stage or the
// run seed.
func (s *Snapshot) Context(key string) (any, bool) {
	v, ok := s.context[key]
	return v, ok
}

// ContextValue fetches a context entry with its concrete type. The second
// return is false when the key is absent or holds a different type.
func ContextValue[T any](s *Snapshot, key string) (T, bool) {
	var zero T
	v, ok := s.context[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// state is the single mutable value threaded through a run. Only the
// executor's run loop touches it, so no locking is needed: stages see
// snapshots and report deltas over a channel.
type state struct {
	meta    RunMetadata
	outputs []StageOutput
	context map[string]any
	seen    map[string]bool
}

func newState(meta RunMetadata, seed map[string]any) *state {
	ctx := make(map[string]any, len(seed))
	for k, v := range seed {
		ctx[k] = v
	}
	return &state{
		meta:    meta,
		context: ctx,
		seen:    make(map[string]bool),
	}
}

func (s *state) snapshot() *Snapshot {
	outs := make([]StageOutput, len(s.outputs))
	copy(outs, s.outputs)
	ctx := make(map[string]any, len(s.context))
	for k, v := range s.context {
		ctx[k] = v
	}
	return &Snapshot{Run: s.meta, outputs: outs, context: ctx}
}

// merge folds one stage's delta into the state and returns the appended
// output, if any. A stage merges at most once per run.
func (s *state) merge(stage string, d Delta) (*StageOutput, error) {
	if s.seen[stage] {
		return nil, fmt.Errorf("stage %s already produced output", stage)
	}
	s.seen[stage] = true
	var appended *StageOutput
	if d.Output != nil {
		out := *d.Output
		if out.Agent == "" {
			out.Agent = stage
		}
		if out.Agent != stage {
			return nil, fmt.Errorf("stage %s published output under name %q", stage, out.Agent)
		}
		if err := out.Validate(); err != nil {
			return nil, err
		}
		s.outputs = append(s.outputs, out)
		appended = &out
	}
	for k, v := range d.Context {
		s.context[k] = v
	}
	return appended, nil
}

func (s *state) outputsCopy() []StageOutput {
	outs := make([]StageOutput, len(s.outputs))
	copy(outs, s.outputs)
	return outs
}
