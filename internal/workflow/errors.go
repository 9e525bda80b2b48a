package workflow

import "fmt"

// MissingDependencyError reports a required predecessor output that was
// absent when a stage ran. It indicates a graph-definition bug and is
// fatal for the run.
type MissingDependencyError struct {
	Stage string
	Dep   string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependency output %q", e.Stage, e.Dep)
}

// RunError wraps the first stage failure of a run together with the
// outputs collected before the run stopped launching stages.
type RunError struct {
	Stage   string
	Err     error
	Partial []StageOutput
}

func (e *RunError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
