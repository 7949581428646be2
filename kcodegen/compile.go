package kcodegen

import (
	"fmt"
	"log/slog"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kdevice"
)

// SplitWork divides tiles over at most cores cores. Every used core gets
// tiles/used tiles and the last one also takes the remainder, so no core is
// ever left without work.
func SplitWork(tiles, cores int) []CoreAssignment {
	used := min(cores, tiles)
	if used <= 0 {
		return nil
	}

	out := make([]CoreAssignment, used)
	share := tiles / used
	start := 0
	for i := range out {
		count := share
		if i == used-1 {
			count += tiles % used
		}
		out[i] = CoreAssignment{Index: i, TileStart: start, TileCount: count}
		start += count
	}
	return out
}

type compiler struct {
	g    *kdag.Graph
	opts Options
	p    *Program
}

// Compile lowers g into a Program. The graph must pass validation.
func Compile(log *slog.Logger, g *kdag.Graph, opts Options) (*Program, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	fingerprint, err := Fingerprint(g, opts)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		g:    g,
		opts: opts,
		p: &Program{
			Fingerprint: fingerprint,
			Options:     opts,
			TileCount:   g.TileCount(),
		},
	}

	c.p.Cores = SplitWork(c.p.TileCount, opts.Cores)
	for i := range c.p.Cores {
		c.p.Cores[i].Core = opts.Grid.Core(i)
		log.Debug("Core work distribution",
			"core", c.p.Cores[i].Core.String(),
			"tile_start", c.p.Cores[i].TileStart,
			"tiles", c.p.Cores[i].TileCount)
	}

	for _, node := range g.Nodes {
		if node.ExposesPorts() {
			continue
		}
		s := node.Stream
		c.p.Streams = append(c.p.Streams, StreamBinding{
			Node:   node.ID,
			Name:   s.Name(),
			Role:   g.StreamRole(node.ID),
			Buffer: dramName(s.Name()),
			Format: s.Format(),
			Count:  s.Count(),
			Tiles:  s.TileCount(),
		})
	}

	for _, assignment := range c.p.Cores {
		for _, conn := range g.Connections {
			c.addBuffer(BufferSpec{
				Name:   fifoName(assignment.Index, conn.ID),
				Kind:   BufferFIFO,
				Core:   assignment.Core,
				Format: conn.Format,
				Pages:  opts.FIFOCapacity,
			})
		}
		for _, id := range order {
			if err := c.lowerNode(assignment, g.Nodes[id]); err != nil {
				return nil, err
			}
		}
	}

	log.Info("Generated device kernels",
		"fingerprint", fingerprint[:12],
		"tiles", c.p.TileCount,
		"cores", len(c.p.Cores),
		"buffers", len(c.p.Buffers),
		"routines", len(c.p.Routines))
	return c.p, nil
}

func (c *compiler) addBuffer(b BufferSpec) {
	c.p.Buffers = append(c.p.Buffers, b)
}

func (c *compiler) lowerNode(a CoreAssignment, node *kdag.Node) error {
	if !node.ExposesPorts() {
		return c.lowerStream(a, node)
	}
	return c.lowerKernel(a, node)
}

func (c *compiler) lowerStream(a CoreAssignment, node *kdag.Node) error {
	dram := dramName(node.Name())
	switch c.g.StreamRole(node.ID) {
	case kdag.RoleSource:
		conn, _ := c.g.Outgoing(kdag.StreamEndpoint(node.ID))
		return c.addMovement(a, node, "stream reader "+node.Name(), "read_"+identifier(node.Name()),
			dram, fifoName(a.Index, conn.ID), true, false)
	case kdag.RoleSink:
		conn, _ := c.g.Incoming(kdag.StreamEndpoint(node.ID))
		return c.addMovement(a, node, "stream writer "+node.Name(), "write_"+identifier(node.Name()),
			fifoName(a.Index, conn.ID), dram, false, true)
	default:
		return fmt.Errorf("%w: stream %q", kdag.ErrUnusedStream, node.Name())
	}
}

func (c *compiler) lowerKernel(a CoreAssignment, node *kdag.Node) error {
	k := node.Kernel
	inputs, outputs := k.Inputs(), k.Outputs()

	inBuffers := make([]string, len(inputs))
	inBindings := make([]string, len(inputs))
	for i, port := range inputs {
		inBindings[i] = BindingName(port.Binding())
		inBuffers[i] = portName(a.Index, node.Name(), port)
		c.addBuffer(BufferSpec{
			Name:   inBuffers[i],
			Kind:   BufferPort,
			Core:   a.Core,
			Format: port.Format,
			Pages:  c.opts.FIFOCapacity,
		})

		conn, _ := c.g.Incoming(kdag.PortEndpoint(node.ID, port.Name))
		err := c.addMovement(a, node,
			fmt.Sprintf("kernel %s reader %s", node.Name(), port.Name),
			fmt.Sprintf("read_%s_%s", identifier(node.Name()), port.Binding()),
			fifoName(a.Index, conn.ID), inBuffers[i], false, false)
		if err != nil {
			return err
		}
	}

	outBuffers := make([]string, len(outputs))
	outBindings := make([]string, len(outputs))
	for i, port := range outputs {
		outBindings[i] = BindingName(port.Binding())
		outBuffers[i] = portName(a.Index, node.Name(), port)
		c.addBuffer(BufferSpec{
			Name:   outBuffers[i],
			Kind:   BufferPort,
			Core:   a.Core,
			Format: port.Format,
			Pages:  c.opts.FIFOCapacity,
		})
	}

	body, err := RewriteBindings(k.ComputeKernel(), len(inputs), len(outputs))
	if err != nil {
		return fmt.Errorf("kernel %q: %w", node.Name(), err)
	}
	entry := "compute_" + identifier(node.Name())
	source, err := render(computeTemplate, computeData{
		Kernel:  node.Name(),
		Core:    a.Core.String(),
		Start:   a.TileStart,
		End:     a.TileStart + a.TileCount,
		Entry:   entry,
		Inputs:  inBindings,
		Outputs: outBindings,
		Body:    indentBody(body),
	})
	if err != nil {
		return fmt.Errorf("render compute routine of kernel %q: %w", node.Name(), err)
	}
	c.p.Routines = append(c.p.Routines, Routine{
		Name:      routineName(a.Index, node.Name(), "compute"),
		Node:      node.ID,
		Kind:      kdevice.Compute,
		Core:      a.Core,
		Source:    source,
		Entry:     entry,
		TileStart: a.TileStart,
		TileCount: a.TileCount,
		Inputs:    inBuffers,
		Outputs:   outBuffers,
	})

	for i, port := range outputs {
		conn, _ := c.g.Outgoing(kdag.PortEndpoint(node.ID, port.Name))
		err := c.addMovement(a, node,
			fmt.Sprintf("kernel %s writer %s", node.Name(), port.Name),
			fmt.Sprintf("write_%s_%s", identifier(node.Name()), port.Binding()),
			outBuffers[i], fifoName(a.Index, conn.ID), false, false)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) addMovement(a CoreAssignment, node *kdag.Node, description, entry, src, dst string, fromDRAM, toDRAM bool) error {
	source, err := render(movementTemplate, movementData{
		Description: description,
		Core:        a.Core.String(),
		Start:       a.TileStart,
		End:         a.TileStart + a.TileCount,
		Entry:       entry,
		FromDRAM:    fromDRAM,
		ToDRAM:      toDRAM,
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", description, err)
	}
	c.p.Routines = append(c.p.Routines, Routine{
		Name:      routineName(a.Index, node.Name(), entry),
		Node:      node.ID,
		Kind:      kdevice.DataMovement,
		Core:      a.Core,
		Source:    source,
		Entry:     entry,
		TileStart: a.TileStart,
		TileCount: a.TileCount,
		Src:       src,
		Dst:       dst,
	})
	return nil
}

func dramName(stream string) string {
	return "dram/" + stream
}

func fifoName(core int, id kdag.ConnectionID) string {
	return fmt.Sprintf("core%d/fifo%d", core, id)
}

func portName(core int, kernel string, port kdag.Port) string {
	return fmt.Sprintf("core%d/%s/%s", core, kernel, BindingName(port.Binding()))
}

func routineName(core int, node, routine string) string {
	return fmt.Sprintf("core%d/%s/%s", core, node, routine)
}
