package tilestreams

import "github.com/birdayz/tilestreams/kdag"

// Graph model types, so simple programs only need to import this package.
type (
	NodeID   = kdag.NodeID
	Endpoint = kdag.Endpoint
	Kernel   = kdag.Kernel
	Stream   = kdag.Stream
	Format   = kdag.Format
)

// Data formats
const (
	Float32  = kdag.Float32
	BFloat16 = kdag.BFloat16
	Float16  = kdag.Float16
)

var (
	NewKernel      = kdag.NewKernel
	NewStream      = kdag.NewStream
	NewFormat      = kdag.NewFormat
	StreamEndpoint = kdag.StreamEndpoint
	PortEndpoint   = kdag.PortEndpoint
)
