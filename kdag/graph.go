package kdag

import (
	"fmt"
)

// NodeID is the index of a node in its graph's arena.
type NodeID int

// NodeKind is the variant tag of a Node.
type NodeKind int

const (
	NodeKindKernel NodeKind = iota
	NodeKindStream
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindKernel:
		return "Kernel"
	case NodeKindStream:
		return "Stream"
	default:
		return "Unknown"
	}
}

// Node is a tagged variant: exactly one of Kernel and Stream is set,
// according to Kind.
type Node struct {
	ID     NodeID
	Kind   NodeKind
	Kernel *Kernel
	Stream *Stream
}

// Name returns the name of the wrapped kernel or stream.
func (n *Node) Name() string {
	if n.Kind == NodeKindKernel {
		return n.Kernel.Name()
	}
	return n.Stream.Name()
}

// ExposesPorts reports whether connections to this node address a named
// port. Streams act as a single anonymous endpoint instead.
func (n *Node) ExposesPorts() bool {
	return n.Kind == NodeKindKernel
}

// Endpoint is one side of a connection. Port is empty for streams.
type Endpoint struct {
	Node NodeID
	Port string
}

// StreamEndpoint addresses a stream.
func StreamEndpoint(id NodeID) Endpoint {
	return Endpoint{Node: id}
}

// PortEndpoint addresses a named kernel port.
func PortEndpoint(id NodeID, port string) Endpoint {
	return Endpoint{Node: id, Port: port}
}

// ConnectionID is the index of a connection in its graph.
type ConnectionID int

// Connection is a directed edge between two endpoints carrying Format.
type Connection struct {
	ID     ConnectionID
	From   Endpoint
	To     Endpoint
	Format Format
}

// Graph is the arena owning all nodes and connections.
type Graph struct {
	Nodes       []*Node
	Connections []*Connection

	names    map[string]NodeID
	outbound map[Endpoint]ConnectionID
	inbound  map[Endpoint]ConnectionID
}

// Size limits to prevent pathological graphs.
const (
	MaxNodesPerGraph = 10000
	MaxConnections   = 100000
)

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:       make([]*Node, 0),
		Connections: make([]*Connection, 0),
		names:       make(map[string]NodeID),
		outbound:    make(map[Endpoint]ConnectionID),
		inbound:     make(map[Endpoint]ConnectionID),
	}
}

// AddKernel copies k into the graph and returns its NodeID.
func (g *Graph) AddKernel(k *Kernel) (NodeID, error) {
	if k == nil {
		return 0, fmt.Errorf("%w: nil kernel", ErrInvalidTopology)
	}
	if err := validateName(k.Name()); err != nil {
		return 0, fmt.Errorf("kernel: %w", err)
	}
	return g.addNode(&Node{Kind: NodeKindKernel, Kernel: k.clone()})
}

// AddStream copies s into the graph and returns its NodeID. The host slice
// stays shared with the caller.
func (g *Graph) AddStream(s *Stream) (NodeID, error) {
	if s == nil {
		return 0, fmt.Errorf("%w: nil stream", ErrInvalidTopology)
	}
	return g.addNode(&Node{Kind: NodeKindStream, Stream: s.clone()})
}

func (g *Graph) addNode(node *Node) (NodeID, error) {
	if len(g.Nodes) >= MaxNodesPerGraph {
		return 0, fmt.Errorf("%w: node count exceeds maximum %d", ErrInvalidTopology, MaxNodesPerGraph)
	}
	name := node.Name()
	if _, exists := g.names[name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrNodeAlreadyExists, name)
	}
	node.ID = NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, node)
	g.names[name] = node.ID
	return node.ID, nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(g.Nodes) {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	return g.Nodes[id], nil
}

// NodeByName looks up a node by kernel or stream name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.names[name]
	if !ok {
		return nil, false
	}
	return g.Nodes[id], true
}

// AddConnection adds a directed edge from -> to.
//
// from must be a kernel output port or a stream, to must be a kernel input
// port or a stream. Formats of both endpoints must be equal, and each port or
// stream can take part in only one connection per direction.
func (g *Graph) AddConnection(from, to Endpoint) (*Connection, error) {
	if len(g.Connections) >= MaxConnections {
		return nil, fmt.Errorf("%w: connection count exceeds maximum %d", ErrInvalidTopology, MaxConnections)
	}

	fromFormat, err := g.endpointFormat(from, Output)
	if err != nil {
		return nil, fmt.Errorf("cannot connect from %s: %w", g.describe(from), err)
	}
	toFormat, err := g.endpointFormat(to, Input)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", g.describe(to), err)
	}

	if fromFormat != toFormat {
		return nil, fmt.Errorf("%w: %s carries %s but %s expects %s",
			ErrFormatMismatch, g.describe(from), fromFormat, g.describe(to), toFormat)
	}

	if err := g.checkUnused(from, g.outbound); err != nil {
		return nil, err
	}
	if err := g.checkUnused(to, g.inbound); err != nil {
		return nil, err
	}

	c := &Connection{
		ID:     ConnectionID(len(g.Connections)),
		From:   from,
		To:     to,
		Format: fromFormat,
	}
	g.Connections = append(g.Connections, c)
	g.outbound[from] = c.ID
	g.inbound[to] = c.ID
	return c, nil
}

// endpointFormat resolves the format of an endpoint used in direction dir of
// its node (Output for the origin of an edge, Input for the target).
func (g *Graph) endpointFormat(e Endpoint, dir Direction) (Format, error) {
	node, err := g.Node(e.Node)
	if err != nil {
		return Format{}, err
	}
	if !node.ExposesPorts() {
		if e.Port != "" {
			return Format{}, fmt.Errorf("%w: stream %q has no port %q", ErrUnknownPort, node.Name(), e.Port)
		}
		return node.Stream.Format(), nil
	}
	port, ok := node.Kernel.Port(dir, e.Port)
	if !ok {
		return Format{}, fmt.Errorf("%w: kernel %q has no %s port %q", ErrUnknownPort, node.Name(), dir, e.Port)
	}
	return port.Format, nil
}

// checkUnused rejects endpoints that are already connected. Streams are a
// single endpoint, so a stream used in either direction counts as used.
func (g *Graph) checkUnused(e Endpoint, used map[Endpoint]ConnectionID) error {
	if id, ok := used[e]; ok {
		return fmt.Errorf("%w: %s is already used by connection %d", ErrPortAlreadyConnected, g.describe(e), id)
	}
	if node := g.Nodes[e.Node]; !node.ExposesPorts() {
		if _, ok := g.outbound[e]; ok {
			return fmt.Errorf("%w: stream %q is already a source", ErrPortAlreadyConnected, node.Name())
		}
		if _, ok := g.inbound[e]; ok {
			return fmt.Errorf("%w: stream %q is already a sink", ErrPortAlreadyConnected, node.Name())
		}
	}
	return nil
}

// Incoming returns the connection ending at e.
func (g *Graph) Incoming(e Endpoint) (*Connection, bool) {
	id, ok := g.inbound[e]
	if !ok {
		return nil, false
	}
	return g.Connections[id], true
}

// Outgoing returns the connection starting at e.
func (g *Graph) Outgoing(e Endpoint) (*Connection, bool) {
	id, ok := g.outbound[e]
	if !ok {
		return nil, false
	}
	return g.Connections[id], true
}

// StreamRole infers the role of a stream from its connections.
func (g *Graph) StreamRole(id NodeID) StreamRole {
	e := StreamEndpoint(id)
	if _, ok := g.outbound[e]; ok {
		return RoleSource
	}
	if _, ok := g.inbound[e]; ok {
		return RoleSink
	}
	return RoleUnbound
}

// Children returns the IDs of the nodes this node feeds, in connection order.
// A node appears once per connection.
func (g *Graph) Children(id NodeID) []NodeID {
	var children []NodeID
	for _, c := range g.Connections {
		if c.From.Node == id {
			children = append(children, c.To.Node)
		}
	}
	return children
}

// TileCount returns the tile count shared by the graph's streams, or 0 if
// the graph has no streams. Only meaningful after Validate succeeded.
func (g *Graph) TileCount() int {
	for _, n := range g.Nodes {
		if n.Kind == NodeKindStream {
			return n.Stream.TileCount()
		}
	}
	return 0
}

func (g *Graph) describe(e Endpoint) string {
	if e.Node < 0 || int(e.Node) >= len(g.Nodes) {
		return fmt.Sprintf("node %d", e.Node)
	}
	node := g.Nodes[e.Node]
	if e.Port == "" {
		return fmt.Sprintf("%s %q", node.Kind, node.Name())
	}
	return fmt.Sprintf("%s.%s", node.Name(), e.Port)
}
