package kdag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Validate performs all connection checks and returns the first failure.
// It does not modify the graph and can be called any number of times.
func (g *Graph) Validate() error {
	// 1. Every input port is fed exactly once
	if err := g.validateInputs(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	// 2. Every output port feeds exactly once
	if err := g.validateOutputs(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	// 3. Cycle detection using DFS
	if err := g.detectCycles(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	// 4. Every stream is used exactly once
	if err := g.validateStreams(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	// 5. Ports of a kernel move tiles of one size
	if err := g.validateTileShapes(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	// 6. Streams agree on the amount of work
	if err := g.validateTileCounts(); err != nil {
		return fmt.Errorf("connection check failed: %w", err)
	}

	return nil
}

func (g *Graph) validateInputs() error {
	for _, node := range g.Nodes {
		if !node.ExposesPorts() {
			continue
		}
		for _, port := range node.Kernel.inputs {
			if _, ok := g.inbound[PortEndpoint(node.ID, port.Name)]; !ok {
				return fmt.Errorf("%w: kernel %q input port %q has no incoming connection",
					ErrDanglingInput, node.Name(), port.Name)
			}
		}
	}
	return nil
}

func (g *Graph) validateOutputs() error {
	for _, node := range g.Nodes {
		if !node.ExposesPorts() {
			continue
		}
		for _, port := range node.Kernel.outputs {
			if _, ok := g.outbound[PortEndpoint(node.ID, port.Name)]; !ok {
				return fmt.Errorf("%w: kernel %q output port %q has no outgoing connection",
					ErrDanglingOutput, node.Name(), port.Name)
			}
		}
	}
	return nil
}

// detectCycles uses Depth-First Search (DFS) to find cycles.
// Time complexity: O(V + E) where V is vertices and E is edges.
func (g *Graph) detectCycles() error {
	adjacency := g.adjacency()
	visited := make([]bool, len(g.Nodes))
	recStack := make([]bool, len(g.Nodes))

	var dfs func(NodeID, []NodeID) error
	dfs = func(nodeID NodeID, path []NodeID) error {
		visited[nodeID] = true
		recStack[nodeID] = true
		path = append(path, nodeID)

		for _, childID := range adjacency[nodeID] {
			if !visited[childID] {
				if err := dfs(childID, path); err != nil {
					return err
				}
			} else if recStack[childID] {
				cyclePath := append(path, childID)
				pathStr := make([]string, len(cyclePath))
				for i, id := range cyclePath {
					pathStr[i] = g.Nodes[id].Name()
				}
				return fmt.Errorf("%w: %s", ErrCyclicGraph, strings.Join(pathStr, " -> "))
			}
		}

		recStack[nodeID] = false
		return nil
	}

	// Check all nodes (handles disconnected components)
	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := dfs(node.ID, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Graph) validateStreams() error {
	for _, node := range g.Nodes {
		if node.ExposesPorts() {
			continue
		}
		if g.StreamRole(node.ID) == RoleUnbound {
			return fmt.Errorf("%w: stream %q is not connected", ErrUnusedStream, node.Name())
		}
	}
	return nil
}

// validateTileShapes requires every port of a kernel to carry tiles with the
// same number of elements, since compute runs element by element.
func (g *Graph) validateTileShapes() error {
	for _, node := range g.Nodes {
		if !node.ExposesPorts() {
			continue
		}
		ports := append(node.Kernel.Inputs(), node.Kernel.Outputs()...)
		for _, port := range ports {
			if port.Format.TileElements() != ports[0].Format.TileElements() {
				return fmt.Errorf("%w: kernel %q port %q has %s tiles but port %q has %s",
					ErrTileShapeMismatch, node.Name(), port.Name, port.Format.Tile, ports[0].Name, ports[0].Format.Tile)
			}
		}
	}
	return nil
}

func (g *Graph) validateTileCounts() error {
	var first *Node
	for _, node := range g.Nodes {
		if node.ExposesPorts() {
			continue
		}
		if first == nil {
			first = node
			continue
		}
		if node.Stream.TileCount() != first.Stream.TileCount() {
			return fmt.Errorf("%w: stream %q spans %d tiles but stream %q spans %d",
				ErrTileCountMismatch, node.Name(), node.Stream.TileCount(), first.Name(), first.Stream.TileCount())
		}
	}
	return nil
}

// adjacency returns the children of every node in connection order.
func (g *Graph) adjacency() [][]NodeID {
	adjacency := make([][]NodeID, len(g.Nodes))
	for _, c := range g.Connections {
		adjacency[c.From.Node] = append(adjacency[c.From.Node], c.To.Node)
	}
	return adjacency
}

// insertSorted inserts an item into a sorted slice maintaining sort order.
func insertSorted(slice []NodeID, item NodeID) []NodeID {
	idx := sort.Search(len(slice), func(i int) bool {
		return slice[i] >= item
	})
	return slices.Insert(slice, idx, item)
}

// TopologicalSort creates a deterministic topological ordering using Kahn's
// algorithm. Ties are broken by NodeID, so the same graph always yields the
// same order.
func (g *Graph) TopologicalSort() ([]NodeID, error) {
	adjacency := g.adjacency()
	inDegree := make([]int, len(g.Nodes))
	for _, children := range adjacency {
		for _, childID := range children {
			inDegree[childID]++
		}
	}

	queue := make([]NodeID, 0, len(g.Nodes))
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, NodeID(id))
		}
	}

	result := make([]NodeID, 0, len(g.Nodes))
	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		result = append(result, nodeID)

		for _, childID := range adjacency[nodeID] {
			inDegree[childID]--
			if inDegree[childID] == 0 {
				queue = insertSorted(queue, childID)
			}
		}
	}

	// If we didn't process all nodes, there must be a cycle
	if len(result) != len(g.Nodes) {
		return nil, fmt.Errorf("%w: topological sort failed", ErrCyclicGraph)
	}

	return result, nil
}
