package kcodegen

import (
	"errors"
	"fmt"

	"github.com/birdayz/tilestreams/kdevice"
)

var (
	ErrInvalidOptions = errors.New("invalid compile options")
	ErrTooManyCores   = errors.New("more cores requested than the grid provides")
	ErrUnknownBinding = errors.New("compute body references unknown port")
)

// DefaultFIFOCapacity is the capacity, in tiles, of every generated FIFO and
// port buffer.
const DefaultFIFOCapacity = 4

// Options control code generation.
type Options struct {
	// Cores is the number of cores to spread tiles over. Fewer are used if
	// there are fewer tiles.
	Cores int `json:"cores"`
	// Grid is the core grid of the target device.
	Grid kdevice.Grid `json:"grid"`
	// FIFOCapacity is the number of tiles each FIFO and port buffer holds.
	FIFOCapacity int `json:"fifo_capacity"`
}

// Validate checks that the options are usable for grid.
func (o Options) Validate() error {
	if o.Cores < 1 {
		return fmt.Errorf("%w: cores must be at least 1, got %d", ErrInvalidOptions, o.Cores)
	}
	if o.FIFOCapacity < 1 {
		return fmt.Errorf("%w: fifo capacity must be at least 1, got %d", ErrInvalidOptions, o.FIFOCapacity)
	}
	if o.Grid.Cores() < 1 {
		return fmt.Errorf("%w: empty grid %dx%d", ErrInvalidOptions, o.Grid.X, o.Grid.Y)
	}
	if o.Cores > o.Grid.Cores() {
		return fmt.Errorf("%w: %d requested, grid %dx%d has %d", ErrTooManyCores, o.Cores, o.Grid.X, o.Grid.Y, o.Grid.Cores())
	}
	return nil
}
