package pipeline

import "fmt"

// State is the orchestrator's position in the stage sequence. The
// orchestrator is the sole writer; collaborators only observe states through
// the progress callback.
type State string

const (
	StateSubmitting   State = "SUBMITTING"
	StatePolling      State = "POLLING"
	StateSegmenting   State = "SEGMENTING"
	StateTranscribing State = "TRANSCRIBING"
	StateAligning     State = "ALIGNING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// ProgressFunc receives a human-readable progress message on entry to each
// stage and on the terminal state.
type ProgressFunc func(state State, detail string)

// Error is a terminal pipeline failure: which stage failed and why. Failures
// are never retried; the pipeline stops at the first one.
type Error struct {
	Stage  State
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline failed at %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("pipeline failed at %s: %s", e.Stage, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(stage State, reason string, err error) *Error {
	return &Error{Stage: stage, Reason: reason, Err: err}
}
