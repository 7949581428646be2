package tilestreams

import (
	"errors"

	"github.com/birdayz/tilestreams/internal/execution"
	"github.com/birdayz/tilestreams/kdag"
)

// ErrInvalidState is returned when an operation is called in a lifecycle
// state that does not allow it.
var ErrInvalidState = errors.New("invalid map state")

// Graph construction and validation errors.
var (
	ErrDuplicatePort        = kdag.ErrDuplicatePort
	ErrUnknownPort          = kdag.ErrUnknownPort
	ErrFormatMismatch       = kdag.ErrFormatMismatch
	ErrDanglingInput        = kdag.ErrDanglingInput
	ErrDanglingOutput       = kdag.ErrDanglingOutput
	ErrCyclicGraph          = kdag.ErrCyclicGraph
	ErrUnusedStream         = kdag.ErrUnusedStream
	ErrTileCountMismatch    = kdag.ErrTileCountMismatch
	ErrTileShapeMismatch    = kdag.ErrTileShapeMismatch
	ErrPortAlreadyConnected = kdag.ErrPortAlreadyConnected
	ErrNodeAlreadyExists    = kdag.ErrNodeAlreadyExists
	ErrNodeNotFound         = kdag.ErrNodeNotFound
	ErrInvalidName          = kdag.ErrInvalidName
	ErrInvalidStream        = kdag.ErrInvalidStream
)

// ErrDeviceExecution is wrapped by every error returned from Execute.
var ErrDeviceExecution = execution.ErrDeviceExecution

// ExecutionError carries the execution stage an error occurred in.
type ExecutionError = execution.ExecutionError

// Stage identifies a step of an execution
type Stage = execution.Stage

// Execution stages
const (
	StageAllocate = execution.StageAllocate
	StageWrite    = execution.StageWrite
	StageLaunch   = execution.StageLaunch
	StageWait     = execution.StageWait
	StageRead     = execution.StageRead
	StageFree     = execution.StageFree
)
