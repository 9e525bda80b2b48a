package workflow

import (
	"context"
	"fmt"
)

// StageFunc runs one analysis stage against an immutable snapshot and
// returns the partial state to merge. Returning an error aborts the run.
type StageFunc func(ctx context.Context, snap *Snapshot) (Delta, error)

// Stage declares one node of the static workflow graph.
type Stage struct {
	Name string
	Deps []string
	Run  StageFunc
}

// Graph is a validated static DAG of named stages. Adding or removing a
// stage is a table change, not a control-flow rewrite.
type Graph struct {
	stages     []Stage
	index      map[string]int
	successors map[string][]string
}

// NewGraph validates the stage table: names must be unique and non-empty,
// every dependency must name a declared stage, and the dependency relation
// must be acyclic.
func NewGraph(stages ...Stage) (*Graph, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("graph has no stages")
	}
	index := make(map[string]int, len(stages))
	for i, st := range stages {
		if st.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if st.Run == nil {
			return nil, fmt.Errorf("stage %s has no run function", st.Name)
		}
		if _, dup := index[st.Name]; dup {
			return nil, fmt.Errorf("duplicate stage name %q", st.Name)
		}
		index[st.Name] = i
	}

	successors := make(map[string][]string, len(stages))
	indegree := make(map[string]int, len(stages))
	for _, st := range stages {
		indegree[st.Name] += 0
		seen := make(map[string]bool, len(st.Deps))
		for _, dep := range st.Deps {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on unknown stage %q", st.Name, dep)
			}
			if dep == st.Name {
				return nil, fmt.Errorf("stage %s depends on itself", st.Name)
			}
			if seen[dep] {
				return nil, fmt.Errorf("stage %s lists dependency %q twice", st.Name, dep)
			}
			seen[dep] = true
			successors[dep] = append(successors[dep], st.Name)
			indegree[st.Name]++
		}
	}

	// Kahn's algorithm: anything left unprocessed sits on a cycle.
	queue := make([]string, 0, len(stages))
	for _, st := range stages {
		if indegree[st.Name] == 0 {
			queue = append(queue, st.Name)
		}
	}
	processed := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		processed++
		for _, succ := range successors[name] {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	if processed != len(stages) {
		return nil, fmt.Errorf("stage graph contains a cycle")
	}

	return &Graph{stages: stages, index: index, successors: successors}, nil
}

// Stages returns the declared stage names in declaration order.
func (g *Graph) Stages() []string {
	names := make([]string, len(g.stages))
	for i, st := range g.stages {
		names[i] = st.Name
	}
	return names
}

func (g *Graph) stage(name string) Stage {
	return g.stages[g.index[name]]
}
