package kcodegen

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

const selectBody = `
        out0 = in2;
    `

func TestSplitWork(t *testing.T) {
	tests := []struct {
		tiles, cores int
		want         []int
	}{
		{tiles: 8, cores: 3, want: []int{2, 2, 4}},
		{tiles: 8, cores: 4, want: []int{2, 2, 2, 2}},
		{tiles: 3, cores: 8, want: []int{1, 1, 1}},
		{tiles: 10, cores: 1, want: []int{10}},
		{tiles: 0, cores: 4, want: nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d tiles on %d cores", tt.tiles, tt.cores), func(t *testing.T) {
			split := SplitWork(tt.tiles, tt.cores)
			var counts []int
			next := 0
			for i, a := range split {
				assert.Equal(t, i, a.Index)
				assert.Equal(t, next, a.TileStart)
				assert.True(t, a.TileCount > 0)
				next += a.TileCount
				counts = append(counts, a.TileCount)
			}
			assert.Equal(t, tt.want, counts)
			assert.Equal(t, tt.tiles, next)
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, testOptions(8).Validate())
	assert.IsError(t, testOptions(9).Validate(), ErrTooManyCores)
	assert.IsError(t, testOptions(0).Validate(), ErrInvalidOptions)

	opts := testOptions(1)
	opts.FIFOCapacity = 0
	assert.IsError(t, opts.Validate(), ErrInvalidOptions)

	opts = testOptions(1)
	opts.Grid = kdevice.Grid{}
	assert.IsError(t, opts.Validate(), ErrInvalidOptions)
}

func TestCompile(t *testing.T) {
	t.Run("selection graph on two cores", func(t *testing.T) {
		g := selectionGraph(4*testFormat.TileElements()+1, selectBody)
		p, err := Compile(testLog, g, testOptions(2))
		assert.NoError(t, err)

		assert.Equal(t, 5, p.TileCount)
		assert.Equal(t, []CoreAssignment{
			{Index: 0, Core: kdevice.CoreCoord{X: 0, Y: 0}, TileStart: 0, TileCount: 2},
			{Index: 1, Core: kdevice.CoreCoord{X: 1, Y: 0}, TileStart: 2, TileCount: 3},
		}, p.Cores)

		assert.Equal(t, 4, len(p.Streams))
		assert.Equal(t, "dram/sink", p.Streams[3].Buffer)
		assert.Equal(t, kdag.RoleSink, p.Streams[3].Role)
		assert.Equal(t, kdag.RoleSource, p.Streams[0].Role)

		// Per core: one FIFO per connection plus one buffer per port.
		assert.Equal(t, 2*(4+4), len(p.Buffers))
		for _, b := range p.Buffers {
			assert.Equal(t, DefaultFIFOCapacity, b.Pages)
		}

		// Per core: three stream readers, one stream writer, three port
		// readers, one compute and one port writer.
		assert.Equal(t, 2*9, len(p.Routines))
		assert.Equal(t, 9, len(p.RoutinesOn(kdevice.CoreCoord{X: 1})))
	})

	t.Run("compute routine binds ports", func(t *testing.T) {
		p, err := Compile(testLog, selectionGraph(1024, selectBody), testOptions(1))
		assert.NoError(t, err)

		var compute *Routine
		for i := range p.Routines {
			if p.Routines[i].Kind == kdevice.Compute {
				compute = &p.Routines[i]
			}
		}
		assert.NotZero(t, compute)
		assert.Equal(t, "compute_select", compute.Entry)
		assert.Equal(t, []string{"core0/select/cb_in0", "core0/select/cb_in1", "core0/select/cb_in2"}, compute.Inputs)
		assert.Equal(t, []string{"core0/select/cb_out0"}, compute.Outputs)
		assert.Contains(t, compute.Source,
			"func compute_select(cb_in0, cb_in1, cb_in2 float32) (cb_out0 float32) {\n\tcb_out0 = cb_in2;\n\treturn\n}\n")
	})

	t.Run("routines chain through buffers", func(t *testing.T) {
		p, err := Compile(testLog, selectionGraph(1024, selectBody), testOptions(1))
		assert.NoError(t, err)

		produced := map[string]int{}
		consumed := map[string]int{}
		for _, r := range p.Routines {
			if r.Kind == kdevice.Compute {
				for _, b := range r.Inputs {
					consumed[b]++
				}
				for _, b := range r.Outputs {
					produced[b]++
				}
				continue
			}
			consumed[r.Src]++
			produced[r.Dst]++
		}
		for _, b := range p.Buffers {
			assert.Equal(t, 1, produced[b.Name], b.Name)
			assert.Equal(t, 1, consumed[b.Name], b.Name)
		}
		assert.Equal(t, 1, consumed["dram/source2"])
		assert.Equal(t, 1, produced["dram/sink"])
	})

	t.Run("stream readers come first", func(t *testing.T) {
		p, err := Compile(testLog, selectionGraph(1024, selectBody), testOptions(1))
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(p.Routines[0].Name, "core0/source0/"))
		assert.Equal(t, "core0/sink/write_sink", p.Routines[len(p.Routines)-1].Name)
		assert.Contains(t, p.Routines[0].Source, "src.ReadPage(tile)")
		assert.Contains(t, p.Routines[0].Source, "dst.Push(page)")
	})

	t.Run("cores are capped by tiles", func(t *testing.T) {
		p, err := Compile(testLog, selectionGraph(2*1024, selectBody), testOptions(8))
		assert.NoError(t, err)
		assert.Equal(t, 2, len(p.Cores))
	})

	t.Run("fifo capacity", func(t *testing.T) {
		opts := testOptions(1)
		opts.FIFOCapacity = 1
		p, err := Compile(testLog, selectionGraph(1024, selectBody), opts)
		assert.NoError(t, err)
		assert.Equal(t, 1, p.Buffers[0].Pages)
	})

	t.Run("invalid graph", func(t *testing.T) {
		g := kdag.NewGraph()
		k := kdag.NewKernel("k")
		must(k.AddInputPort("a", testFormat))
		mustID(g.AddKernel(k))
		_, err := Compile(testLog, g, testOptions(1))
		assert.IsError(t, err, kdag.ErrDanglingInput)
	})

	t.Run("unknown binding", func(t *testing.T) {
		_, err := Compile(testLog, selectionGraph(1024, "out0 = in3"), testOptions(1))
		assert.IsError(t, err, ErrUnknownBinding)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := Compile(testLog, selectionGraph(8*1024, selectBody), testOptions(3))
		assert.NoError(t, err)
		b, err := Compile(testLog, selectionGraph(8*1024, selectBody), testOptions(3))
		assert.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestFingerprint(t *testing.T) {
	base, err := Fingerprint(selectionGraph(1024, selectBody), testOptions(1))
	assert.NoError(t, err)
	assert.Equal(t, 64, len(base))

	same, err := Fingerprint(selectionGraph(1024, selectBody), testOptions(1))
	assert.NoError(t, err)
	assert.Equal(t, base, same)

	for name, fp := range map[string]func() (string, error){
		"cores": func() (string, error) { return Fingerprint(selectionGraph(1024, selectBody), testOptions(2)) },
		"body":  func() (string, error) { return Fingerprint(selectionGraph(1024, "out0 = in1"), testOptions(1)) },
		"count": func() (string, error) { return Fingerprint(selectionGraph(1000, selectBody), testOptions(1)) },
	} {
		t.Run(name, func(t *testing.T) {
			other, err := fp()
			assert.NoError(t, err)
			assert.NotEqual(t, base, other)
		})
	}
}
