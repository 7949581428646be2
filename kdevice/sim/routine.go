package sim

import (
	"context"
	"fmt"

	"github.com/birdayz/tilestreams/kdevice"
	"github.com/birdayz/tilestreams/kserde"
)

// prepare resolves the buffers of r and returns the function running it.
func (d *Device) prepare(core kdevice.CoreCoord, r kdevice.Routine) (func(context.Context) error, error) {
	if r.TileCount < 0 || r.TileStart < 0 {
		return nil, fmt.Errorf("invalid tile range start %d count %d", r.TileStart, r.TileCount)
	}

	switch r.Kind {
	case kdevice.DataMovement:
		src, err := d.localBuffer(core, r.Src)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		dst, err := d.localBuffer(core, r.Dst)
		if err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
		if src.pageSize != dst.pageSize {
			return nil, fmt.Errorf("%w: page size %d of %s differs from %d of %s",
				kdevice.ErrInvalidBuffer, src.pageSize, src, dst.pageSize, dst)
		}
		return func(ctx context.Context) error {
			return move(ctx, r, src, dst)
		}, nil

	case kdevice.Compute:
		fn, err := compileKernel(r.Source, r.Entry)
		if err != nil {
			return nil, err
		}
		if fn.inputs != len(r.Inputs) || fn.outputs != len(r.Outputs) {
			return nil, fmt.Errorf("%s takes %d inputs and %d outputs, routine binds %d and %d",
				r.Entry, fn.inputs, fn.outputs, len(r.Inputs), len(r.Outputs))
		}
		inputs, err := d.circularBuffers(core, r.Inputs)
		if err != nil {
			return nil, fmt.Errorf("inputs: %w", err)
		}
		outputs, err := d.circularBuffers(core, r.Outputs)
		if err != nil {
			return nil, fmt.Errorf("outputs: %w", err)
		}
		all := append(append([]*buffer(nil), inputs...), outputs...)
		for _, b := range all {
			if b.format.TileElements() != all[0].format.TileElements() {
				return nil, fmt.Errorf("%w: %s and %s hold tiles of different shape",
					kdevice.ErrInvalidBuffer, all[0], b)
			}
		}
		return func(ctx context.Context) error {
			return compute(ctx, r, fn, inputs, outputs)
		}, nil

	default:
		return nil, fmt.Errorf("unknown routine kind %d", r.Kind)
	}
}

// localBuffer resolves id and checks that a circular buffer lives on core.
func (d *Device) localBuffer(core kdevice.CoreCoord, id kdevice.BufferID) (*buffer, error) {
	b, err := d.buffer(id)
	if err != nil {
		return nil, err
	}
	if b.circular && b.core != core {
		return nil, fmt.Errorf("%w: %s is not local to core %s", kdevice.ErrInvalidBuffer, b, core)
	}
	return b, nil
}

func (d *Device) circularBuffers(core kdevice.CoreCoord, ids []kdevice.BufferID) ([]*buffer, error) {
	out := make([]*buffer, len(ids))
	for i, id := range ids {
		b, err := d.localBuffer(core, id)
		if err != nil {
			return nil, err
		}
		if !b.circular {
			return nil, fmt.Errorf("%w: compute routines only access circular buffers, got %s", kdevice.ErrInvalidBuffer, b)
		}
		out[i] = b
	}
	return out, nil
}

func move(ctx context.Context, r kdevice.Routine, src, dst *buffer) error {
	for i := 0; i < r.TileCount; i++ {
		page, err := readPage(ctx, src, r.TileStart+i)
		if err != nil {
			return err
		}
		if err := writePage(ctx, dst, r.TileStart+i, page); err != nil {
			return err
		}
	}
	return nil
}

// readPage pops from a circular buffer or copies page idx of an
// interleaved buffer.
func readPage(ctx context.Context, b *buffer, idx int) ([]byte, error) {
	if b.circular {
		select {
		case page := <-b.ring:
			return page, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	off := idx * b.pageSize
	if off+b.pageSize > len(b.data) {
		return nil, fmt.Errorf("page %d out of range of %s", idx, b)
	}
	page := make([]byte, b.pageSize)
	copy(page, b.data[off:])
	return page, nil
}

// writePage pushes to a circular buffer or stores page idx of an
// interleaved buffer. Concurrent writers of the same interleaved buffer
// touch disjoint pages.
func writePage(ctx context.Context, b *buffer, idx int, page []byte) error {
	if b.circular {
		select {
		case b.ring <- page:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	off := idx * b.pageSize
	if off+b.pageSize > len(b.data) {
		return fmt.Errorf("page %d out of range of %s", idx, b)
	}
	copy(b.data[off:off+b.pageSize], page)
	return nil
}

func compute(ctx context.Context, r kdevice.Routine, fn *kernelFunc, inputs, outputs []*buffer) error {
	var elements int
	switch {
	case len(inputs) > 0:
		elements = inputs[0].format.TileElements()
	case len(outputs) > 0:
		elements = outputs[0].format.TileElements()
	default:
		return nil
	}

	in := make([][]float32, len(inputs))
	for i := range in {
		in[i] = make([]float32, elements)
	}
	out := make([][]float32, len(outputs))
	for i := range out {
		out[i] = make([]float32, elements)
	}
	env := fn.newEnv()

	for t := 0; t < r.TileCount; t++ {
		for i, b := range inputs {
			page, err := readPage(ctx, b, 0)
			if err != nil {
				return err
			}
			if err := kserde.DecodeTiles(b.format, page, in[i], elements); err != nil {
				return err
			}
		}

		for e := 0; e < elements; e++ {
			for i := range in {
				env.setInput(i, in[i][e])
			}
			fn.run(env)
			for i := range out {
				out[i][e] = env.output(i)
			}
		}

		for i, b := range outputs {
			page, err := kserde.EncodeTiles(b.format, out[i], elements)
			if err != nil {
				return err
			}
			if err := writePage(ctx, b, 0, page); err != nil {
				return err
			}
		}
	}
	return nil
}
