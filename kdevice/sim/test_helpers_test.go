package sim

import (
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

// smallFormat keeps simulated tiles tiny: 4 Float32 elements.
var smallFormat = kdag.Format{DataFormat: kdag.Float32, Tile: kdag.TileShape{Height: 2, Width: 2}}

var core0 = kdevice.CoreCoord{}

func mustCompile(source, entry string) *kernelFunc {
	fn, err := compileKernel(source, entry)
	if err != nil {
		panic(err)
	}
	return fn
}

// eval runs fn once with the given inputs and returns its outputs.
func eval(fn *kernelFunc, inputs ...float32) []float32 {
	env := fn.newEnv()
	for i, v := range inputs {
		env.setInput(i, v)
	}
	fn.run(env)
	out := make([]float32, fn.outputs)
	for i := range out {
		out[i] = env.output(i)
	}
	return out
}

func newTestDevice(opts ...Option) *Device {
	d, err := New(append([]Option{WithGrid(2, 2)}, opts...)...)
	if err != nil {
		panic(err)
	}
	return d
}

func mustBuffer(d *Device, name string, tiles int) kdevice.BufferID {
	id, err := d.CreateBuffer(kdevice.BufferConfig{
		Name:      name,
		Placement: kdevice.DRAM,
		Size:      tiles * smallFormat.TileBytes(),
		PageSize:  smallFormat.TileBytes(),
	})
	if err != nil {
		panic(err)
	}
	return id
}

func mustCircular(d *Device, core kdevice.CoreCoord, name string, pages int) kdevice.BufferID {
	id, err := d.CreateCircularBuffer(core, kdevice.CircularBufferConfig{Name: name, Format: smallFormat, Pages: pages})
	if err != nil {
		panic(err)
	}
	return id
}

func moveRoutine(name string, src, dst kdevice.BufferID, start, count int) kdevice.Routine {
	return kdevice.Routine{
		Name:      name,
		Kind:      kdevice.DataMovement,
		TileStart: start,
		TileCount: count,
		Src:       src,
		Dst:       dst,
	}
}
