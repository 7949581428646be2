package kcodegen

import (
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

// Program is the device-level lowering of a validated graph. It references
// streams by NodeID and buffers by name; the executor binds both to host
// data and device allocations.
type Program struct {
	Fingerprint string           `json:"fingerprint"`
	Options     Options          `json:"options"`
	TileCount   int              `json:"tile_count"`
	Cores       []CoreAssignment `json:"cores"`
	Streams     []StreamBinding  `json:"streams"`
	Buffers     []BufferSpec     `json:"buffers"`
	Routines    []Routine        `json:"routines"`
}

// CoreAssignment is the contiguous tile range one core works on.
type CoreAssignment struct {
	Index     int               `json:"index"`
	Core      kdevice.CoreCoord `json:"core"`
	TileStart int               `json:"tile_start"`
	TileCount int               `json:"tile_count"`
}

// StreamBinding maps a stream to its DRAM backing buffer.
type StreamBinding struct {
	Node   kdag.NodeID     `json:"node"`
	Name   string          `json:"name"`
	Role   kdag.StreamRole `json:"role"`
	Buffer string          `json:"buffer"`
	Format kdag.Format     `json:"format"`
	Count  int             `json:"count"`
	Tiles  int             `json:"tiles"`
}

// BufferKind tells FIFOs between routines of different nodes apart from the
// buffers local to one kernel port.
type BufferKind string

const (
	BufferFIFO BufferKind = "fifo"
	BufferPort BufferKind = "port"
)

// BufferSpec is an on-chip circular buffer of one core.
type BufferSpec struct {
	Name   string            `json:"name"`
	Kind   BufferKind        `json:"kind"`
	Core   kdevice.CoreCoord `json:"core"`
	Format kdag.Format       `json:"format"`
	Pages  int               `json:"pages"`
}

// Routine is one generated program launched on one core. Data movement
// routines move tiles from Src to Dst; compute routines read Inputs and
// write Outputs in port order.
type Routine struct {
	Name      string              `json:"name"`
	Node      kdag.NodeID         `json:"node"`
	Kind      kdevice.RoutineKind `json:"kind"`
	Core      kdevice.CoreCoord   `json:"core"`
	Source    string              `json:"source"`
	Entry     string              `json:"entry"`
	TileStart int                 `json:"tile_start"`
	TileCount int                 `json:"tile_count"`
	Src       string              `json:"src,omitempty"`
	Dst       string              `json:"dst,omitempty"`
	Inputs    []string            `json:"inputs,omitempty"`
	Outputs   []string            `json:"outputs,omitempty"`
}

// RoutinesOn returns the routines launched on core, in program order.
func (p *Program) RoutinesOn(core kdevice.CoreCoord) []Routine {
	var out []Routine
	for _, r := range p.Routines {
		if r.Core == core {
			out = append(out, r)
		}
	}
	return out
}

// ProgramCache stores compiled programs by fingerprint.
type ProgramCache interface {
	Get(fingerprint string) (*Program, bool, error)
	Put(p *Program) error
}
