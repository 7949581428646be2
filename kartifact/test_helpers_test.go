package kartifact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

var testFormat = kdag.Format{DataFormat: kdag.Float32, Tile: kdag.TileShape{Height: 2, Width: 2}}

// compiledPipeline compiles source -> double -> sink on cores cores.
func compiledPipeline(cores int) (*kdag.Graph, *kcodegen.Program) {
	g := kdag.NewGraph()

	src, err := kdag.NewStream("source", make([]float32, 8), 8, testFormat)
	must(err)
	srcID, err := g.AddStream(src)
	must(err)

	k := kdag.NewKernel("double")
	must(k.AddInputPort("x", testFormat))
	must(k.AddOutputPort("y", testFormat))
	k.SetComputeKernel("out0 = in0 * 2")
	kid, err := g.AddKernel(k)
	must(err)

	sink, err := kdag.NewStream("sink", make([]float32, 8), 8, testFormat)
	must(err)
	sinkID, err := g.AddStream(sink)
	must(err)

	_, err = g.AddConnection(kdag.StreamEndpoint(srcID), kdag.PortEndpoint(kid, "x"))
	must(err)
	_, err = g.AddConnection(kdag.PortEndpoint(kid, "y"), kdag.StreamEndpoint(sinkID))
	must(err)

	p, err := kcodegen.Compile(slog.New(slog.NewTextHandler(io.Discard, nil)), g, kcodegen.Options{
		Cores:        cores,
		Grid:         kdevice.Grid{X: 2, Y: 1},
		FIFOCapacity: kcodegen.DefaultFIFOCapacity,
	})
	must(err)
	return g, p
}

var errRejected = errors.New("rejected")

// memoryStore records artifacts and rejects the names in reject.
type memoryStore struct {
	mu     sync.Mutex
	items  map[string]Artifact
	reject map[string]bool
}

func newMemoryStore(reject ...string) *memoryStore {
	s := &memoryStore{items: make(map[string]Artifact), reject: make(map[string]bool)}
	for _, name := range reject {
		s.reject[name] = true
	}
	return s
}

func (s *memoryStore) Put(_ context.Context, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject[a.Name] {
		return errRejected
	}
	s.items[a.Name] = a
	return nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
