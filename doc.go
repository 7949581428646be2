// Package tilestreams builds tile dataflow programs, compiles them into
// per-core routines and runs them on a device.
//
// A Map holds kernels, which transform tiles arriving on ordered input
// ports into tiles on ordered output ports, and streams, which hold host
// data. Streams feeding a kernel are sources, streams fed by a kernel are
// sinks:
//
//	m := tilestreams.MustNew(tilestreams.WithCores(4))
//	defer m.Close()
//
//	format := tilestreams.NewFormat(tilestreams.BFloat16)
//	k := tilestreams.NewKernel("double")
//	_ = k.AddInputPort("x", format)
//	_ = k.AddOutputPort("y", format)
//	k.SetComputeKernel("out0 = in0 * 2")
//	kernel, _ := m.AddKernel(k)
//
//	src, _ := tilestreams.NewStream("source", input, len(input), format)
//	dst, _ := tilestreams.NewStream("sink", output, len(output), format)
//	source, _ := m.AddStream(src)
//	sink, _ := m.AddStream(dst)
//
//	_ = m.ConnectStream(source, kernel, "x")
//	_ = m.ConnectSink(kernel, "y", sink)
//
//	if err := m.CheckConnections(); err != nil { ... }
//	if _, err := m.GenerateDeviceKernels(); err != nil { ... }
//	if err := m.Execute(ctx); err != nil { ... }
//
// After Execute, output holds the results.
package tilestreams
