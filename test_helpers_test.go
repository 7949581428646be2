package tilestreams

import (
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/tilestreams/kdag"
)

// smallFormat keeps simulated runs cheap: 4 elements per tile.
var smallFormat = kdag.Format{DataFormat: kdag.Float32, Tile: kdag.TileShape{Height: 2, Width: 2}}

func newTestMap(t *testing.T, opts ...Option) *Map {
	t.Helper()
	m, err := New(opts...)
	assert.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.Close())
	})
	return m
}

// addKernel adds a kernel with inputs input and outputs output ports named
// in0.., out0.. .
func addKernel(t *testing.T, m *Map, name string, format Format, inputs, outputs int, body string) NodeID {
	t.Helper()
	k := NewKernel(name)
	for i := 0; i < inputs; i++ {
		assert.NoError(t, k.AddInputPort(fmt.Sprintf("in%d", i), format))
	}
	for i := 0; i < outputs; i++ {
		assert.NoError(t, k.AddOutputPort(fmt.Sprintf("out%d", i), format))
	}
	k.SetComputeKernel(body)
	id, err := m.AddKernel(k)
	assert.NoError(t, err)
	return id
}

func addStream(t *testing.T, m *Map, name string, host []float32, format Format) NodeID {
	t.Helper()
	s, err := NewStream(name, host, len(host), format)
	assert.NoError(t, err)
	id, err := m.AddStream(s)
	assert.NoError(t, err)
	return id
}

// pipeline adds source -> kernel -> sink and returns the sink host slice.
func pipeline(t *testing.T, m *Map, source []float32, format Format, body string) []float32 {
	t.Helper()
	sink := make([]float32, len(source))
	k := addKernel(t, m, "kernel", format, 1, 1, body)
	src := addStream(t, m, "source", source, format)
	dst := addStream(t, m, "sink", sink, format)
	assert.NoError(t, m.ConnectStream(src, k, "in0"))
	assert.NoError(t, m.ConnectSink(k, "out0", dst))
	return sink
}

// compileMap validates and compiles m.
func compileMap(t *testing.T, m *Map) {
	t.Helper()
	assert.NoError(t, m.CheckConnections())
	_, err := m.GenerateDeviceKernels()
	assert.NoError(t, err)
}

func sequence(count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}
