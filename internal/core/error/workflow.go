package errx

import (
	"errors"
	"fmt"
)

// WorkflowError is the hard failure tier: a stage whose work could not be done.
// Callers of the workflow must handle it; nothing inside the pipeline masks it.
type WorkflowError struct {
	Stage string
	Cause error
}

// NewWorkflowError wraps cause as a failure of stage. A nil cause yields nil.
func NewWorkflowError(stage string, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *WorkflowError
	if errors.As(cause, &existing) {
		return cause
	}
	return &WorkflowError{Stage: stage, Cause: cause}
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow stage %s failed: %v", e.Stage, e.Cause)
}

func (e *WorkflowError) Unwrap() error {
	return e.Cause
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) (string, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Stage, true
	}
	return "", false
}

// Degraded is the soft failure tier. Text is a usable placeholder that the
// caller consumes inline; Err keeps the reason for logging.
type Degraded struct {
	Text string
	Err  error
}

// Degrade builds a Degraded value.
func Degrade(text string, err error) *Degraded {
	return &Degraded{Text: text, Err: err}
}

func (d *Degraded) Error() string {
	return d.Text
}

func (d *Degraded) Unwrap() error {
	return d.Err
}
