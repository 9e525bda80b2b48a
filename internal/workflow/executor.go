package workflow

import (
	"context"
	"fmt"
)

// StageHook observes each merged stage output. It runs on the executor's
// loop goroutine, after the output became visible to successors.
type StageHook func(meta RunMetadata, out StageOutput)

// Option configures an Executor.
type Option func(*Executor)

// WithStageHook registers an observer for completed stages.
func WithStageHook(h StageHook) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, h)
	}
}

// Executor runs a Graph with AND-join scheduling: a stage launches only
// once every one of its predecessors has merged, stages without unmet
// dependencies run concurrently, and each stage runs exactly once.
type Executor struct {
	graph *Graph
	hooks []StageHook
}

func NewExecutor(g *Graph, opts ...Option) *Executor {
	e := &Executor{graph: g}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the final workflow state of a successful run.
type Result struct {
	Meta    RunMetadata
	Outputs []StageOutput
	Context map[string]any
}

// Output returns the most recent output published under a stage name.
func (r *Result) Output(name string) (StageOutput, bool) {
	for i := len(r.Outputs) - 1; i >= 0; i-- {
		if r.Outputs[i].Agent == name {
			return r.Outputs[i], true
		}
	}
	return StageOutput{}, false
}

type stageResult struct {
	name  string
	delta Delta
	err   error
}

// Run executes the graph to completion. Stage goroutines only ever see
// immutable snapshots; their deltas come back over a channel and merge
// here, one at a time, so there is no shared mutable state to race on.
// On failure the returned error is a *RunError carrying the outputs
// collected before the run stopped.
func (e *Executor) Run(ctx context.Context, meta RunMetadata, seed map[string]any) (*Result, error) {
	st := newState(meta, seed)

	pending := make(map[string]int, len(e.graph.stages))
	for _, stage := range e.graph.stages {
		pending[stage.Name] = len(stage.Deps)
	}

	results := make(chan stageResult)
	inFlight := 0
	launch := func(name string) {
		stage := e.graph.stage(name)
		snap := st.snapshot()
		inFlight++
		go func() {
			delta, err := stage.Run(ctx, snap)
			results <- stageResult{name: name, delta: delta, err: err}
		}()
	}

	for _, stage := range e.graph.stages {
		if pending[stage.Name] == 0 {
			launch(stage.Name)
		}
	}

	var failure *RunError
	for inFlight > 0 {
		res := <-results
		inFlight--

		if res.err != nil {
			if failure == nil {
				failure = &RunError{Stage: res.name, Err: res.err}
			}
			continue
		}
		merged, err := st.merge(res.name, res.delta)
		if err != nil {
			if failure == nil {
				failure = &RunError{Stage: res.name, Err: err}
			}
			continue
		}
		if merged != nil {
			for _, hook := range e.hooks {
				hook(meta, *merged)
			}
		}

		// In-flight siblings of a failed branch still drain above, but
		// nothing new launches once a failure is recorded.
		if failure != nil {
			continue
		}
		for _, succ := range e.graph.successors[res.name] {
			pending[succ]--
			if pending[succ] == 0 {
				launch(succ)
			}
		}
	}

	if failure != nil {
		failure.Partial = st.outputsCopy()
		return nil, failure
	}

	for _, stage := range e.graph.stages {
		if !st.seen[stage.Name] {
			return nil, fmt.Errorf("stage %s never ran: graph wiring bug", stage.Name)
		}
	}

	return &Result{Meta: meta, Outputs: st.outputsCopy(), Context: st.context}, nil
}
