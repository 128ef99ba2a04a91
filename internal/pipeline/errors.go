package pipeline

import "fmt"

// Stage names reported in progress events, log fields and errors.
const (
	StageConfigure = "configure"
	StageNormalize = "normalize"
	StageFetch     = "fetch"
	StageSegment   = "segment"
	StageRecognize = "recognize"
	StageAssemble  = "assemble"
)

// Error wraps a fatal pipeline failure with the stage that produced it.
// Unwrap exposes the typed stage error for errors.Is/As.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Err: err}
}
