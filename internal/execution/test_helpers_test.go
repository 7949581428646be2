package execution

import (
	"io"
	"log/slog"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

// testFormat keeps tiles small so programs stay cheap to simulate.
var (
	testFormat = kdag.Format{DataFormat: kdag.Float32, Tile: kdag.TileShape{Height: 2, Width: 2}}
	testLog    = slog.New(slog.NewTextHandler(io.Discard, nil))
	testGrid   = kdevice.Grid{X: 2, Y: 2}
)

// scaleGraph builds source -> scale -> sink where the kernel runs body.
func scaleGraph(source []float32, body string) *kdag.Graph {
	g := kdag.NewGraph()

	src, err := kdag.NewStream("source", source, len(source), testFormat)
	must(err)
	srcID := mustID(g.AddStream(src))

	k := kdag.NewKernel("scale")
	must(k.AddInputPort("x", testFormat))
	must(k.AddOutputPort("y", testFormat))
	k.SetComputeKernel(body)
	kid := mustID(g.AddKernel(k))

	sink, err := kdag.NewStream("sink", make([]float32, len(source)), len(source), testFormat)
	must(err)
	sinkID := mustID(g.AddStream(sink))

	_, err = g.AddConnection(kdag.StreamEndpoint(srcID), kdag.PortEndpoint(kid, "x"))
	must(err)
	_, err = g.AddConnection(kdag.PortEndpoint(kid, "y"), kdag.StreamEndpoint(sinkID))
	must(err)
	return g
}

func compileGraph(g *kdag.Graph, cores int) *kcodegen.Program {
	p, err := kcodegen.Compile(testLog, g, kcodegen.Options{
		Cores:        cores,
		Grid:         testGrid,
		FIFOCapacity: kcodegen.DefaultFIFOCapacity,
	})
	must(err)
	return p
}

func sinkHost(g *kdag.Graph) []float32 {
	node, ok := g.NodeByName("sink")
	if !ok {
		panic("graph has no sink")
	}
	return node.Stream.Host()
}

func mustID(id kdag.NodeID, err error) kdag.NodeID {
	must(err)
	return id
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
