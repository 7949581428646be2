package kcodegen

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

var (
	testFormat = kdag.NewFormat(kdag.BFloat16)
	testLog    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func testOptions(cores int) Options {
	return Options{Cores: cores, Grid: kdevice.Grid{X: 4, Y: 2}, FIFOCapacity: DefaultFIFOCapacity}
}

// selectionGraph builds three constant sources feeding a kernel that
// forwards its third input to a sink.
func selectionGraph(count int, body string) *kdag.Graph {
	g := kdag.NewGraph()

	k := kdag.NewKernel("select")
	for i := 0; i < 3; i++ {
		must(k.AddInputPort(fmt.Sprintf("in%d", i), testFormat))
	}
	must(k.AddOutputPort("out0", testFormat))
	k.SetComputeKernel(body)
	kid := mustID(g.AddKernel(k))

	for i := 0; i < 3; i++ {
		s := mustStream(fmt.Sprintf("source%d", i), count)
		sid := mustID(g.AddStream(s))
		_, err := g.AddConnection(kdag.StreamEndpoint(sid), kdag.PortEndpoint(kid, fmt.Sprintf("in%d", i)))
		must(err)
	}
	sink := mustID(g.AddStream(mustStream("sink", count)))
	_, err := g.AddConnection(kdag.PortEndpoint(kid, "out0"), kdag.StreamEndpoint(sink))
	must(err)
	return g
}

func mustStream(name string, count int) *kdag.Stream {
	s, err := kdag.NewStream(name, make([]float32, count), count, testFormat)
	must(err)
	return s
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
