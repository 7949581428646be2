// Package kdag provides the graph model for tile dataflow programs.
//
// # Overview
//
// A program is a directed acyclic graph of two kinds of nodes:
//
//   - **Kernel**: ordered input and output ports plus an opaque compute body.
//   - **Stream**: a host-resident buffer that acts as a single anonymous
//     endpoint. A stream used as the origin of a connection is a source, a
//     stream used as the target of a connection is a sink.
//
// Connections bind an output port (or a source stream) to an input port (or
// a sink stream). Both endpoints must carry the same Format.
//
// # Ownership
//
// Graph is an arena: AddKernel and AddStream copy the node into the graph and
// return a NodeID, which is the node's index. All later references go through
// NodeIDs; the caller keeps no ownership of graph storage. The only thing
// shared with the caller is a stream's host slice, which is where sink
// results are written back.
//
//	g := kdag.NewGraph()
//
//	k := kdag.NewKernel("select")
//	_ = k.AddInputPort("in0", kdag.NewFormat(kdag.BFloat16))
//	_ = k.AddOutputPort("out0", kdag.NewFormat(kdag.BFloat16))
//	k.SetComputeKernel("out0 = in0")
//	kernel, _ := g.AddKernel(k)
//
//	src, _ := kdag.NewStream("source", data, len(data), kdag.NewFormat(kdag.BFloat16))
//	source, _ := g.AddStream(src)
//
//	_, _ = g.AddConnection(kdag.StreamEndpoint(source), kdag.PortEndpoint(kernel, "in0"))
//
// # Compute bodies
//
// A compute body is never parsed here. It refers to ports positionally: inN
// is the Nth declared input port and outN the Nth declared output port. The
// code generator rewrites these names when it lowers the graph.
//
// # Validation
//
// Validate checks, in order, and returns the first failure:
//
//   - every kernel input port has exactly one incoming connection (ErrDanglingInput)
//   - every kernel output port has exactly one outgoing connection (ErrDanglingOutput)
//   - the graph has no cycle (ErrCyclicGraph)
//   - every stream is connected exactly once (ErrUnusedStream)
//   - all ports of a kernel carry tiles of one element count (ErrTileShapeMismatch)
//   - all streams agree on their tile count (ErrTileCountMismatch)
//
// All errors are sentinel errors wrapped with context and can be checked with
// errors.Is.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent mutation. Build it from one goroutine.
package kdag
