package kdag

import "errors"

// Sentinel errors for graph construction and validation.
var (
	ErrDuplicatePort        = errors.New("duplicate port")
	ErrUnknownPort          = errors.New("unknown port")
	ErrFormatMismatch       = errors.New("format mismatch")
	ErrDanglingInput        = errors.New("dangling input port")
	ErrDanglingOutput       = errors.New("dangling output port")
	ErrCyclicGraph          = errors.New("cycle detected in graph")
	ErrUnusedStream         = errors.New("unused stream")
	ErrTileCountMismatch    = errors.New("tile count mismatch")
	ErrTileShapeMismatch    = errors.New("tile shape mismatch")
	ErrPortAlreadyConnected = errors.New("port already connected")
	ErrNodeAlreadyExists    = errors.New("node already exists")
	ErrNodeNotFound         = errors.New("node not found")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidStream        = errors.New("invalid stream")
	ErrInvalidTopology      = errors.New("invalid topology")
)
