// Package sim is an in-process kdevice.Device. Cores are goroutines, L1
// circular buffers are bounded channels and DRAM is plain host memory, so
// producer/consumer backpressure behaves as on hardware.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

// Defaults of a freshly created device.
const (
	DefaultGridX    = 8
	DefaultGridY    = 8
	DefaultDRAMSize = 1 << 30
	DefaultL1Size   = 1 << 20
)

type Option func(*Device)

// WithGrid sets the core grid size.
func WithGrid(x, y int) Option {
	return func(d *Device) {
		d.grid = kdevice.Grid{X: x, Y: y}
	}
}

// WithDRAMSize sets the total DRAM budget in bytes.
func WithDRAMSize(size int) Option {
	return func(d *Device) {
		d.dramSize = size
	}
}

// WithL1Size sets the L1 budget of each core in bytes.
func WithL1Size(size int) Option {
	return func(d *Device) {
		d.l1Size = size
	}
}

func WithLog(log *slog.Logger) Option {
	return func(d *Device) {
		d.log = log
	}
}

type buffer struct {
	id        kdevice.BufferID
	name      string
	placement kdevice.Placement
	core      kdevice.CoreCoord
	pageSize  int
	size      int

	// Interleaved buffers.
	data []byte

	// Circular buffers.
	circular bool
	format   kdag.Format
	ring     chan []byte
}

func (b *buffer) String() string {
	if b.circular {
		return fmt.Sprintf("circular buffer %q on core %s", b.name, b.core)
	}
	return fmt.Sprintf("%s buffer %q", b.placement, b.name)
}

// Device simulates an accelerator.
type Device struct {
	log      *slog.Logger
	grid     kdevice.Grid
	dramSize int
	l1Size   int

	mu       sync.Mutex
	closed   bool
	nextID   kdevice.BufferID
	buffers  map[kdevice.BufferID]*buffer
	dramUsed int
	l1Used   map[kdevice.CoreCoord]int

	group    *errgroup.Group
	groupCtx context.Context
	launched int
}

var _ kdevice.Device = (*Device)(nil)

// New creates a simulated device.
func New(opts ...Option) (*Device, error) {
	d := &Device{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		grid:     kdevice.Grid{X: DefaultGridX, Y: DefaultGridY},
		dramSize: DefaultDRAMSize,
		l1Size:   DefaultL1Size,
		buffers:  make(map[kdevice.BufferID]*buffer),
		l1Used:   make(map[kdevice.CoreCoord]int),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.grid.X <= 0 || d.grid.Y <= 0 {
		return nil, fmt.Errorf("invalid grid %dx%d", d.grid.X, d.grid.Y)
	}
	if d.dramSize <= 0 || d.l1Size <= 0 {
		return nil, fmt.Errorf("invalid memory sizes: dram %d, l1 %d", d.dramSize, d.l1Size)
	}

	d.log.Debug("Simulated device created",
		"grid", fmt.Sprintf("%dx%d", d.grid.X, d.grid.Y),
		"dram", d.dramSize,
		"l1", d.l1Size)
	return d, nil
}

func (d *Device) Grid() kdevice.Grid {
	return d.grid
}

// CreateBuffer allocates an interleaved buffer. L1 buffers are charged to
// every core since their pages are spread over the grid.
func (d *Device) CreateBuffer(cfg kdevice.BufferConfig) (kdevice.BufferID, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, kdevice.ErrClosed
	}

	switch cfg.Placement {
	case kdevice.DRAM:
		if d.dramUsed+cfg.Size > d.dramSize {
			return 0, fmt.Errorf("%w: %q needs %d bytes of DRAM, %d of %d in use",
				kdevice.ErrOutOfMemory, cfg.Name, cfg.Size, d.dramUsed, d.dramSize)
		}
		d.dramUsed += cfg.Size
	case kdevice.L1:
		perCore := (cfg.Size + d.grid.Cores() - 1) / d.grid.Cores()
		for i := 0; i < d.grid.Cores(); i++ {
			if d.l1Used[d.grid.Core(i)]+perCore > d.l1Size {
				return 0, fmt.Errorf("%w: %q needs %d bytes of L1 on core %s",
					kdevice.ErrOutOfMemory, cfg.Name, perCore, d.grid.Core(i))
			}
		}
		for i := 0; i < d.grid.Cores(); i++ {
			d.l1Used[d.grid.Core(i)] += perCore
		}
	default:
		return 0, fmt.Errorf("%w: unknown placement %d", kdevice.ErrInvalidBuffer, cfg.Placement)
	}

	b := &buffer{
		id:        d.allocID(),
		name:      cfg.Name,
		placement: cfg.Placement,
		pageSize:  cfg.PageSize,
		size:      cfg.Size,
		data:      make([]byte, cfg.Size),
	}
	d.buffers[b.id] = b
	return b.id, nil
}

// CreateCircularBuffer allocates a circular buffer in the L1 of core.
func (d *Device) CreateCircularBuffer(core kdevice.CoreCoord, cfg kdevice.CircularBufferConfig) (kdevice.BufferID, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if !d.grid.Contains(core) {
		return 0, fmt.Errorf("%w: %s", kdevice.ErrInvalidCore, core)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, kdevice.ErrClosed
	}

	if d.l1Used[core]+cfg.Size() > d.l1Size {
		return 0, fmt.Errorf("%w: %q needs %d bytes of L1 on core %s, %d of %d in use",
			kdevice.ErrOutOfMemory, cfg.Name, cfg.Size(), core, d.l1Used[core], d.l1Size)
	}
	d.l1Used[core] += cfg.Size()

	b := &buffer{
		id:        d.allocID(),
		name:      cfg.Name,
		placement: kdevice.L1,
		core:      core,
		pageSize:  cfg.PageSize(),
		size:      cfg.Size(),
		circular:  true,
		format:    cfg.Format,
		ring:      make(chan []byte, cfg.Pages),
	}
	d.buffers[b.id] = b
	return b.id, nil
}

func (d *Device) allocID() kdevice.BufferID {
	d.nextID++
	return d.nextID
}

func (d *Device) buffer(id kdevice.BufferID) (*buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, kdevice.ErrClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", kdevice.ErrUnknownBuffer, id)
	}
	return b, nil
}

// EnqueueWrite copies data to the start of an interleaved buffer.
func (d *Device) EnqueueWrite(ctx context.Context, id kdevice.BufferID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if b.circular {
		return fmt.Errorf("%w: cannot write to %s from the host", kdevice.ErrInvalidBuffer, b)
	}
	if len(data) > b.size {
		return fmt.Errorf("%w: %d bytes do not fit into %s of %d bytes", kdevice.ErrInvalidBuffer, len(data), b, b.size)
	}
	copy(b.data, data)
	return nil
}

// EnqueueRead returns a copy of an interleaved buffer.
func (d *Device) EnqueueRead(ctx context.Context, id kdevice.BufferID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if b.circular {
		return nil, fmt.Errorf("%w: cannot read %s from the host", kdevice.ErrInvalidBuffer, b)
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Launch validates r and starts it on its own goroutine. The first routine
// failing cancels all others launched since the last Finish.
func (d *Device) Launch(ctx context.Context, core kdevice.CoreCoord, r kdevice.Routine) error {
	if !d.grid.Contains(core) {
		return fmt.Errorf("%w: %s", kdevice.ErrInvalidCore, core)
	}
	run, err := d.prepare(core, r)
	if err != nil {
		return fmt.Errorf("routine %q: %w", r.Name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return kdevice.ErrClosed
	}
	if d.group == nil {
		d.group, d.groupCtx = errgroup.WithContext(ctx)
	}
	gctx := d.groupCtx
	d.launched++
	d.group.Go(func() error {
		if err := run(gctx); err != nil {
			return fmt.Errorf("routine %q on core %s: %w", r.Name, core, err)
		}
		return nil
	})
	return nil
}

// Finish blocks until every launched routine returned and reports the
// first routine error.
func (d *Device) Finish(ctx context.Context) error {
	d.mu.Lock()
	group, launched := d.group, d.launched
	d.group, d.groupCtx, d.launched = nil, nil, 0
	d.mu.Unlock()

	if group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case err := <-done:
		d.log.Debug("Routines finished", "count", launched, "error", err)
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Free releases a buffer and its memory.
func (d *Device) Free(id kdevice.BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", kdevice.ErrUnknownBuffer, id)
	}
	d.release(b)
	return nil
}

func (d *Device) release(b *buffer) {
	delete(d.buffers, b.id)
	switch {
	case b.circular:
		d.l1Used[b.core] -= b.size
	case b.placement == kdevice.DRAM:
		d.dramUsed -= b.size
	default:
		perCore := (b.size + d.grid.Cores() - 1) / d.grid.Cores()
		for i := 0; i < d.grid.Cores(); i++ {
			d.l1Used[d.grid.Core(i)] -= perCore
		}
	}
}

// Close releases all buffers. Routines still running keep their buffers
// until they return.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	ids := make([]kdevice.BufferID, 0, len(d.buffers))
	for id := range d.buffers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		d.release(d.buffers[id])
	}
	d.log.Debug("Simulated device closed", "freed", len(ids))
	return nil
}

// MemoryUsage returns the bytes in use in DRAM and in the L1 of core.
func (d *Device) MemoryUsage(core kdevice.CoreCoord) (dram int, l1 int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dramUsed, d.l1Used[core]
}
