package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
	"github.com/birdayz/tilestreams/kserde"
)

// Executor runs compiled programs on a device.
type Executor struct {
	log    *slog.Logger
	device kdevice.Device
}

func NewExecutor(log *slog.Logger, device kdevice.Device) *Executor {
	return &Executor{
		log:    log,
		device: device,
	}
}

// run holds the device allocations of one execution.
type run struct {
	buffers map[string]kdevice.BufferID
	order   []string
}

// Execute allocates the buffers of p, uploads the source streams of g,
// launches every routine, waits for completion and downloads the sinks into
// their host slices. All buffers are freed before the sinks are written, so
// sink host data is only modified if Execute returns nil, including a
// failure to free.
func (e *Executor) Execute(ctx context.Context, g *kdag.Graph, p *kcodegen.Program) error {
	start := time.Now()
	e.log.Info("Executing program",
		"fingerprint", p.Fingerprint,
		"cores", len(p.Cores),
		"routines", len(p.Routines))

	r := &run{buffers: make(map[string]kdevice.BufferID)}
	results, err := e.stages(ctx, r, g, p)
	if freeErr := e.free(r); freeErr != nil {
		if err != nil {
			e.log.Error("Failed to free buffers after failed execution", "error", freeErr)
			return err
		}
		return freeErr
	}
	if err != nil {
		return err
	}

	for _, s := range p.Streams {
		if res, ok := results[s.Node]; ok {
			copy(g.Nodes[s.Node].Stream.Host()[:s.Count], res)
		}
	}

	e.log.Info("Execution finished", "duration", time.Since(start))
	return nil
}

// stages executes every stage up to reading the sinks. Buffers allocated so far
// are tracked in r, also on failure.
func (e *Executor) stages(ctx context.Context, r *run, g *kdag.Graph, p *kcodegen.Program) (map[kdag.NodeID][]float32, error) {
	if err := e.allocate(r, p); err != nil {
		return nil, err
	}
	if err := e.write(ctx, r, g, p); err != nil {
		return nil, err
	}
	if err := e.launch(ctx, r, p); err != nil {
		return nil, err
	}
	return e.read(ctx, r, p)
}

func (e *Executor) allocate(r *run, p *kcodegen.Program) error {
	for _, s := range p.Streams {
		pageSize := s.Format.TileBytes()
		id, err := e.device.CreateBuffer(kdevice.BufferConfig{
			Name:      s.Buffer,
			Placement: kdevice.DRAM,
			Size:      s.Tiles * pageSize,
			PageSize:  pageSize,
		})
		if err != nil {
			return newExecutionError(err, StageAllocate, s.Buffer)
		}
		r.track(s.Buffer, id)
	}

	for _, b := range p.Buffers {
		id, err := e.device.CreateCircularBuffer(b.Core, kdevice.CircularBufferConfig{
			Name:   b.Name,
			Format: b.Format,
			Pages:  b.Pages,
		})
		if err != nil {
			return newExecutionError(err, StageAllocate, b.Name)
		}
		r.track(b.Name, id)
	}

	e.log.Debug("Allocated buffers", "count", len(r.order))
	return nil
}

func (r *run) track(name string, id kdevice.BufferID) {
	r.buffers[name] = id
	r.order = append(r.order, name)
}

func (e *Executor) write(ctx context.Context, r *run, g *kdag.Graph, p *kcodegen.Program) error {
	for _, s := range p.Streams {
		if s.Role != kdag.RoleSource {
			continue
		}
		node, err := g.Node(s.Node)
		if err != nil || node.Kind != kdag.NodeKindStream {
			return newExecutionError(fmt.Errorf("program does not match graph: stream %q", s.Name), StageWrite, s.Buffer)
		}
		data, err := kserde.EncodeTiles(s.Format, node.Stream.Host(), s.Count)
		if err != nil {
			return newExecutionError(err, StageWrite, s.Buffer)
		}
		if err := e.device.EnqueueWrite(ctx, r.buffers[s.Buffer], data); err != nil {
			return newExecutionError(err, StageWrite, s.Buffer)
		}
		e.log.Debug("Wrote stream", "stream", s.Name, "bytes", len(data))
	}
	return nil
}

func (e *Executor) launch(ctx context.Context, r *run, p *kcodegen.Program) error {
	// Routines launched before a failing launch would wait forever for
	// their peers; cancel them and drain before returning.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, routine := range p.Routines {
		dr, err := r.bind(routine)
		if err == nil {
			err = e.device.Launch(runCtx, routine.Core, dr)
		}
		if err != nil {
			cancel()
			drainErr := e.device.Finish(ctx)
			e.log.Debug("Drained launched routines", "error", drainErr)
			return newExecutionError(err, StageLaunch, routine.Name)
		}
	}

	if err := e.device.Finish(runCtx); err != nil {
		return newExecutionError(err, StageWait, "")
	}
	return nil
}

// bind resolves buffer names to device allocations.
func (r *run) bind(routine kcodegen.Routine) (kdevice.Routine, error) {
	lookup := func(name string) (kdevice.BufferID, error) {
		id, ok := r.buffers[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", kdevice.ErrUnknownBuffer, name)
		}
		return id, nil
	}

	dr := kdevice.Routine{
		Name:      routine.Name,
		Kind:      routine.Kind,
		Source:    routine.Source,
		Entry:     routine.Entry,
		TileStart: routine.TileStart,
		TileCount: routine.TileCount,
	}

	var err error
	if routine.Kind == kdevice.DataMovement {
		if dr.Src, err = lookup(routine.Src); err != nil {
			return dr, err
		}
		if dr.Dst, err = lookup(routine.Dst); err != nil {
			return dr, err
		}
		return dr, nil
	}

	for _, name := range routine.Inputs {
		id, err := lookup(name)
		if err != nil {
			return dr, err
		}
		dr.Inputs = append(dr.Inputs, id)
	}
	for _, name := range routine.Outputs {
		id, err := lookup(name)
		if err != nil {
			return dr, err
		}
		dr.Outputs = append(dr.Outputs, id)
	}
	return dr, nil
}

func (e *Executor) read(ctx context.Context, r *run, p *kcodegen.Program) (map[kdag.NodeID][]float32, error) {
	results := make(map[kdag.NodeID][]float32)
	for _, s := range p.Streams {
		if s.Role != kdag.RoleSink {
			continue
		}
		data, err := e.device.EnqueueRead(ctx, r.buffers[s.Buffer])
		if err != nil {
			return nil, newExecutionError(err, StageRead, s.Buffer)
		}
		out := make([]float32, s.Count)
		if err := kserde.DecodeTiles(s.Format, data, out, s.Count); err != nil {
			return nil, newExecutionError(err, StageRead, s.Buffer)
		}
		results[s.Node] = out
		e.log.Debug("Read stream", "stream", s.Name, "elements", s.Count)
	}
	return results, nil
}

func (e *Executor) free(r *run) error {
	var err error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if freeErr := e.device.Free(r.buffers[name]); freeErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, freeErr))
		}
	}
	if err != nil {
		return newExecutionError(err, StageFree, "")
	}
	return nil
}
