package kdag

import "fmt"

var testFormat = NewFormat(BFloat16)

// newTestKernel creates a kernel with the given number of input and output
// ports named in0.., out0.. .
func newTestKernel(name string, inputs, outputs int) *Kernel {
	k := NewKernel(name)
	for i := 0; i < inputs; i++ {
		if err := k.AddInputPort(inName(i), testFormat); err != nil {
			panic(err)
		}
	}
	for i := 0; i < outputs; i++ {
		if err := k.AddOutputPort(outName(i), testFormat); err != nil {
			panic(err)
		}
	}
	k.SetComputeKernel("out0 = in0")
	return k
}

func inName(i int) string  { return Port{Direction: Input, Index: i}.Binding() }
func outName(i int) string { return Port{Direction: Output, Index: i}.Binding() }

// newTestStream creates a stream of count elements.
func newTestStream(name string, count int) *Stream {
	s, err := NewStream(name, make([]float32, count), count, testFormat)
	if err != nil {
		panic(err)
	}
	return s
}

func mustAddKernel(g *Graph, k *Kernel) NodeID {
	id, err := g.AddKernel(k)
	if err != nil {
		panic(err)
	}
	return id
}

func mustAddStream(g *Graph, s *Stream) NodeID {
	id, err := g.AddStream(s)
	if err != nil {
		panic(err)
	}
	return id
}

func mustConnect(g *Graph, from, to Endpoint) {
	if _, err := g.AddConnection(from, to); err != nil {
		panic(err)
	}
}

// buildPipeline builds source -> k0 -> k1 -> ... -> sink with single-port
// kernels.
func buildPipeline(kernels int, count int) *Graph {
	g := NewGraph()
	prev := StreamEndpoint(mustAddStream(g, newTestStream("source", count)))
	for i := 0; i < kernels; i++ {
		id := mustAddKernel(g, newTestKernel(kernelName(i), 1, 1))
		mustConnect(g, prev, PortEndpoint(id, "in0"))
		prev = PortEndpoint(id, "out0")
	}
	mustConnect(g, prev, StreamEndpoint(mustAddStream(g, newTestStream("sink", count))))
	return g
}

func kernelName(i int) string {
	return fmt.Sprintf("kernel-%d", i)
}
