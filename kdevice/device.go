// Package kdevice defines the contract between the executor and an
// accelerator made of a grid of cores with off-chip (DRAM) and per-core
// on-chip (L1) memory.
package kdevice

import (
	"context"
	"errors"
	"fmt"

	"github.com/birdayz/tilestreams/kdag"
)

var (
	ErrOutOfMemory   = errors.New("out of device memory")
	ErrUnknownBuffer = errors.New("unknown buffer")
	ErrInvalidCore   = errors.New("core outside of grid")
	ErrInvalidBuffer = errors.New("invalid buffer config")
	ErrClosed        = errors.New("device closed")
)

// CoreCoord addresses one core of the grid.
type CoreCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c CoreCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Grid is the size of the compute core grid.
type Grid struct {
	X int
	Y int
}

// Cores returns the number of cores in the grid.
func (g Grid) Cores() int {
	return g.X * g.Y
}

// Core returns the i-th core in row-major order.
func (g Grid) Core(i int) CoreCoord {
	return CoreCoord{X: i % g.X, Y: i / g.X}
}

// Contains reports whether c lies inside the grid.
func (g Grid) Contains(c CoreCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.X && c.Y < g.Y
}

// Placement selects the memory a buffer lives in.
type Placement int

const (
	DRAM Placement = iota
	L1
)

func (p Placement) String() string {
	switch p {
	case DRAM:
		return "DRAM"
	case L1:
		return "L1"
	default:
		return "Unknown"
	}
}

// BufferID identifies an allocation on a device.
type BufferID uint64

// BufferConfig describes an interleaved buffer. Size must be a multiple of
// PageSize.
type BufferConfig struct {
	Name      string
	Placement Placement
	Size      int
	PageSize  int
}

// Validate checks sizes.
func (c BufferConfig) Validate() error {
	if c.PageSize <= 0 || c.Size <= 0 || c.Size%c.PageSize != 0 {
		return fmt.Errorf("%w: %q size %d page size %d", ErrInvalidBuffer, c.Name, c.Size, c.PageSize)
	}
	return nil
}

// CircularBufferConfig describes an on-chip ring of Pages tiles of Format
// local to one core. Producers block while it is full, consumers while it
// is empty.
type CircularBufferConfig struct {
	Name   string
	Format kdag.Format
	Pages  int
}

// PageSize returns the size of one page.
func (c CircularBufferConfig) PageSize() int {
	return c.Format.TileBytes()
}

// Size returns the L1 footprint of the buffer.
func (c CircularBufferConfig) Size() int {
	return c.Pages * c.PageSize()
}

// Validate checks format and capacity.
func (c CircularBufferConfig) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidBuffer, c.Name, err)
	}
	if c.Pages <= 0 {
		return fmt.Errorf("%w: %q capacity %d pages", ErrInvalidBuffer, c.Name, c.Pages)
	}
	return nil
}

// RoutineKind distinguishes data movement routines from compute routines.
type RoutineKind int

const (
	// DataMovement moves TileCount pages from Src to Dst. An interleaved
	// buffer is addressed page by page starting at TileStart, a circular
	// buffer is popped or pushed.
	DataMovement RoutineKind = iota
	// Compute pops one tile from each of Inputs, runs Entry from Source over
	// every element and pushes one tile to each of Outputs, TileCount times.
	Compute
)

func (k RoutineKind) String() string {
	switch k {
	case DataMovement:
		return "data_movement"
	case Compute:
		return "compute"
	default:
		return "unknown"
	}
}

// Routine is a unit of work launched on one core.
type Routine struct {
	Name      string
	Kind      RoutineKind
	Source    string
	Entry     string
	TileStart int
	TileCount int

	Src BufferID
	Dst BufferID

	Inputs  []BufferID
	Outputs []BufferID
}

// Device is an accelerator. Enqueued writes and reads complete before they
// return; Launch starts a routine asynchronously and Finish waits for all
// launched routines.
type Device interface {
	Grid() Grid
	CreateBuffer(cfg BufferConfig) (BufferID, error)
	CreateCircularBuffer(core CoreCoord, cfg CircularBufferConfig) (BufferID, error)
	EnqueueWrite(ctx context.Context, buf BufferID, data []byte) error
	EnqueueRead(ctx context.Context, buf BufferID) ([]byte, error)
	Launch(ctx context.Context, core CoreCoord, r Routine) error
	Finish(ctx context.Context) error
	Free(buf BufferID) error
	Close() error
}
