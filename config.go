package tilestreams

import (
	"log/slog"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdevice"
)

// Option is a function that configures a Map
type Option func(*Map)

// WithLog sets the logger for the map and the components it creates
var WithLog = func(log *slog.Logger) Option {
	return func(m *Map) {
		m.log = log
	}
}

// WithCores sets the number of cores the work is spread over. Fewer cores
// are used if the streams span fewer tiles.
var WithCores = func(n int) Option {
	return func(m *Map) {
		m.cores = n
	}
}

// WithFIFOCapacity sets the capacity in tiles of every generated FIFO and
// port buffer
var WithFIFOCapacity = func(tiles int) Option {
	return func(m *Map) {
		m.fifoCapacity = tiles
	}
}

// WithDevice runs the map on device instead of a simulated device. The
// caller keeps ownership: Close does not close it.
var WithDevice = func(device kdevice.Device) Option {
	return func(m *Map) {
		m.device = device
	}
}

// WithProgramCache makes GenerateDeviceKernels look up and store compiled
// programs in cache
var WithProgramCache = func(cache kcodegen.ProgramCache) Option {
	return func(m *Map) {
		m.cache = cache
	}
}

// NullWriter is a writer that discards all data
type NullWriter struct{}

func (NullWriter) Write(p []byte) (int, error) { return len(p), nil }

// NullLogger creates a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
