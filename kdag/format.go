package kdag

import "fmt"

// DataFormat is the element encoding of a tile.
type DataFormat int

const (
	// BFloat16 is the 16 bit brain float format (Float16_b on the device).
	BFloat16 DataFormat = iota
	Float16
	Float32
)

func (f DataFormat) String() string {
	switch f {
	case BFloat16:
		return "BFloat16"
	case Float16:
		return "Float16"
	case Float32:
		return "Float32"
	default:
		return "Unknown"
	}
}

// ElementSize returns the encoded size of one element in bytes, or 0 for
// unknown formats.
func (f DataFormat) ElementSize() int {
	switch f {
	case BFloat16, Float16:
		return 2
	case Float32:
		return 4
	default:
		return 0
	}
}

// Default tile geometry of the compute cores.
const (
	TileHeight = 32
	TileWidth  = 32
)

// TileShape is the geometry of one tile in elements.
type TileShape struct {
	Height int
	Width  int
}

// DefaultTileShape is the 32x32 tile used by the compute cores.
var DefaultTileShape = TileShape{Height: TileHeight, Width: TileWidth}

// Elements returns the number of elements in one tile.
func (s TileShape) Elements() int {
	return s.Height * s.Width
}

func (s TileShape) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// Format describes the data carried by a port or stream: element encoding and
// tile geometry. Two formats are compatible only if they are equal.
type Format struct {
	DataFormat DataFormat
	Tile       TileShape
}

// NewFormat returns a format with the default tile shape.
func NewFormat(df DataFormat) Format {
	return Format{DataFormat: df, Tile: DefaultTileShape}
}

// Validate checks that the format describes a known encoding and a
// non-empty tile.
func (f Format) Validate() error {
	if f.DataFormat.ElementSize() == 0 {
		return fmt.Errorf("%w: unknown data format %d", ErrInvalidFormat, int(f.DataFormat))
	}
	if f.Tile.Height <= 0 || f.Tile.Width <= 0 {
		return fmt.Errorf("%w: tile shape %s", ErrInvalidFormat, f.Tile)
	}
	return nil
}

// TileElements returns the number of elements per tile.
func (f Format) TileElements() int {
	return f.Tile.Elements()
}

// TileBytes returns the encoded size of one tile.
func (f Format) TileBytes() int {
	return f.Tile.Elements() * f.DataFormat.ElementSize()
}

func (f Format) String() string {
	return fmt.Sprintf("%s[%s]", f.DataFormat, f.Tile)
}
