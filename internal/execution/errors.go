package execution

import (
	"errors"
	"fmt"
)

// ErrDeviceExecution is wrapped by every error reported by Execute.
var ErrDeviceExecution = errors.New("device execution failed")

// Stage indicates where in the execution an error occurred
type Stage string

const (
	StageAllocate Stage = "allocate"
	StageWrite    Stage = "write"
	StageLaunch   Stage = "launch"
	StageWait     Stage = "wait"
	StageRead     Stage = "read"
	StageFree     Stage = "free"
)

// ExecutionError wraps a device error with the stage and the buffer or
// routine it concerns.
type ExecutionError struct {
	// Cause is the underlying error
	Cause error

	// Stage identifies where in the execution the error occurred
	Stage Stage

	// Target names the buffer or routine being handled, if any
	Target string
}

func (e *ExecutionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s stage: %v", ErrDeviceExecution, e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s: %s stage (%s): %v", ErrDeviceExecution, e.Stage, e.Target, e.Cause)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrDeviceExecution, e.Cause}
}

func newExecutionError(cause error, stage Stage, target string) *ExecutionError {
	return &ExecutionError{
		Cause:  cause,
		Stage:  stage,
		Target: target,
	}
}
