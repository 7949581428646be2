package tilestreams

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/birdayz/tilestreams/internal/execution"
	"github.com/birdayz/tilestreams/kartifact"
	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
	"github.com/birdayz/tilestreams/kdevice/sim"
)

// State is a lifecycle state of a Map.
type State string

const (
	StateBuilding  State = "BUILDING"
	StateValidated State = "VALIDATED"
	StateCompiled  State = "COMPILED"
	StateExecuted  State = "EXECUTED"
)

// Map owns a graph of kernels and streams and drives it through validation,
// code generation and execution. States only move forward:
//
//	BUILDING -> VALIDATED -> COMPILED -> EXECUTED
//
// Nodes and connections can only be added while BUILDING.
type Map struct {
	mu sync.Mutex

	log   *slog.Logger
	graph *kdag.Graph
	state State

	cores        int
	fifoCapacity int

	device     kdevice.Device
	ownsDevice bool
	cache      kcodegen.ProgramCache

	program  *kcodegen.Program
	executor *execution.Executor
}

// New creates an empty map. Without WithDevice, a simulated device with
// default geometry is created and owned by the map.
func New(opts ...Option) (*Map, error) {
	m := &Map{
		log:          NullLogger(),
		graph:        kdag.NewGraph(),
		state:        StateBuilding,
		cores:        1,
		fifoCapacity: kcodegen.DefaultFIFOCapacity,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.device == nil {
		device, err := sim.New(sim.WithLog(m.log.WithGroup("device")))
		if err != nil {
			return nil, fmt.Errorf("failed to create simulated device: %w", err)
		}
		m.device = device
		m.ownsDevice = true
	}

	if err := m.options().Validate(); err != nil {
		if m.ownsDevice {
			_ = m.device.Close()
		}
		return nil, err
	}

	m.executor = execution.NewExecutor(m.log.WithGroup("executor"), m.device)
	return m, nil
}

// MustNew creates a new map, panicking on configuration errors.
// Prefer New() for production code to handle errors gracefully.
func MustNew(opts ...Option) *Map {
	m, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Map) options() kcodegen.Options {
	return kcodegen.Options{
		Cores:        m.cores,
		Grid:         m.device.Grid(),
		FIFOCapacity: m.fifoCapacity,
	}
}

func (m *Map) changeState(newState State) {
	m.log.Info("Change state", "from", m.state, "to", newState)
	m.state = newState
}

// requireState returns ErrInvalidState unless the map is in one of allowed.
func (m *Map) requireState(op string, allowed ...State) error {
	for _, s := range allowed {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not allowed in state %s", ErrInvalidState, op, m.state)
}

// State returns the current lifecycle state.
func (m *Map) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Graph returns the underlying graph. It must not be modified.
func (m *Map) Graph() *kdag.Graph {
	return m.graph
}

// AddKernel copies k into the map.
func (m *Map) AddKernel(k *kdag.Kernel) (NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireState("AddKernel", StateBuilding); err != nil {
		return 0, err
	}
	return m.graph.AddKernel(k)
}

// AddStream adds s to the map. Its host slice stays shared with the caller;
// sink results are written into it.
func (m *Map) AddStream(s *kdag.Stream) (NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireState("AddStream", StateBuilding); err != nil {
		return 0, err
	}
	return m.graph.AddStream(s)
}

// AddConnection connects from to to. See kdag.Graph.AddConnection.
func (m *Map) AddConnection(from, to Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireState("AddConnection", StateBuilding); err != nil {
		return err
	}
	_, err := m.graph.AddConnection(from, to)
	return err
}

// ConnectStream feeds a stream into an input port of a kernel.
func (m *Map) ConnectStream(stream, kernel NodeID, port string) error {
	return m.AddConnection(kdag.StreamEndpoint(stream), kdag.PortEndpoint(kernel, port))
}

// ConnectSink drains an output port of a kernel into a stream.
func (m *Map) ConnectSink(kernel NodeID, port string, stream NodeID) error {
	return m.AddConnection(kdag.PortEndpoint(kernel, port), kdag.StreamEndpoint(stream))
}

// CheckConnections validates the graph. It can be called any number of
// times; the first success moves the map to VALIDATED.
func (m *Map) CheckConnections() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.graph.Validate(); err != nil {
		return err
	}
	if m.state == StateBuilding {
		m.changeState(StateValidated)
	}
	return nil
}

// GenerateDeviceKernels lowers the validated graph into a program for the
// map's device. Once compiled, the existing program is returned.
func (m *Map) GenerateDeviceKernels() (*kcodegen.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateCompiled || m.state == StateExecuted {
		return m.program, nil
	}
	if err := m.requireState("GenerateDeviceKernels", StateValidated); err != nil {
		return nil, err
	}

	p, err := m.compile()
	if err != nil {
		return nil, err
	}
	m.program = p
	m.changeState(StateCompiled)
	return p, nil
}

func (m *Map) compile() (*kcodegen.Program, error) {
	opts := m.options()

	if m.cache != nil {
		fingerprint, err := kcodegen.Fingerprint(m.graph, opts)
		if err != nil {
			return nil, err
		}
		p, ok, err := m.cache.Get(fingerprint)
		if err != nil {
			m.log.Warn("Failed to read program cache", "fingerprint", fingerprint, "error", err)
		} else if ok {
			m.log.Info("Using cached program", "fingerprint", fingerprint)
			return p, nil
		}
	}

	p, err := kcodegen.Compile(m.log.WithGroup("codegen"), m.graph, opts)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		if err := m.cache.Put(p); err != nil {
			m.log.Warn("Failed to store program in cache", "fingerprint", p.Fingerprint, "error", err)
		}
	}
	return p, nil
}

// Program returns the compiled program.
func (m *Map) Program() (*kcodegen.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireState("Program", StateCompiled, StateExecuted); err != nil {
		return nil, err
	}
	return m.program, nil
}

// Execute runs the compiled program and writes the results into the host
// slices of the sink streams. Only one execution runs at a time; a map can
// be executed again after a successful execution.
func (m *Map) Execute(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireState("Execute", StateCompiled, StateExecuted); err != nil {
		return err
	}
	if err := m.executor.Execute(ctx, m.graph, m.program); err != nil {
		return err
	}
	if m.state != StateExecuted {
		m.changeState(StateExecuted)
	}
	return nil
}

// WriteDOT writes the graph in Graphviz DOT format. Any state is allowed.
func (m *Map) WriteDOT(w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph.WriteDOT(w)
}

// ExportDOT writes the graph in Graphviz DOT format to path.
func (m *Map) ExportDOT(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to export graph: %w", closeErr)
		}
	}()
	return m.WriteDOT(f)
}

// PublishArtifacts stores the DOT graph, the program and the generated
// routine sources in store, below the program fingerprint.
func (m *Map) PublishArtifacts(ctx context.Context, store kartifact.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireState("PublishArtifacts", StateCompiled, StateExecuted); err != nil {
		return err
	}
	artifacts, err := kartifact.Collect(m.graph, m.program)
	if err != nil {
		return err
	}
	if err := kartifact.Publish(ctx, store, m.program.Fingerprint, artifacts); err != nil {
		return err
	}
	m.log.Info("Published artifacts", "fingerprint", m.program.Fingerprint, "count", len(artifacts))
	return nil
}

// Close releases the device if the map created it.
func (m *Map) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ownsDevice {
		return nil
	}
	m.ownsDevice = false
	return m.device.Close()
}
