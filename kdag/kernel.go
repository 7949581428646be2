package kdag

import (
	"fmt"
	"strings"
)

// Direction of a port relative to its kernel.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Port is a named, typed attachment point on a kernel. Index is the port's
// position within its direction and is what the compute body refers to.
type Port struct {
	Name      string
	Direction Direction
	Format    Format
	Index     int
}

// Binding returns the positional name the compute body uses for this port
// (in0, in1, ..., out0, ...).
func (p Port) Binding() string {
	if p.Direction == Input {
		return fmt.Sprintf("in%d", p.Index)
	}
	return fmt.Sprintf("out%d", p.Index)
}

// Kernel is a processing node with ordered input and output ports and an
// opaque compute body.
type Kernel struct {
	name    string
	inputs  []Port
	outputs []Port
	body    string
}

// NewKernel creates a kernel without ports.
func NewKernel(name string) *Kernel {
	return &Kernel{name: name}
}

// Name returns the kernel name.
func (k *Kernel) Name() string {
	return k.name
}

// AddInputPort appends an input port.
func (k *Kernel) AddInputPort(name string, format Format) error {
	return k.addPort(Input, name, format)
}

// AddOutputPort appends an output port.
func (k *Kernel) AddOutputPort(name string, format Format) error {
	return k.addPort(Output, name, format)
}

func (k *Kernel) addPort(dir Direction, name string, format Format) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("kernel %q %s port: %w", k.name, dir, err)
	}
	if err := format.Validate(); err != nil {
		return fmt.Errorf("kernel %q %s port %q: %w", k.name, dir, name, err)
	}
	if _, ok := k.Port(dir, name); ok {
		return fmt.Errorf("%w: kernel %q already has %s port %q", ErrDuplicatePort, k.name, dir, name)
	}

	ports := &k.inputs
	if dir == Output {
		ports = &k.outputs
	}
	*ports = append(*ports, Port{
		Name:      name,
		Direction: dir,
		Format:    format,
		Index:     len(*ports),
	})
	return nil
}

// SetComputeKernel stores the compute body verbatim.
func (k *Kernel) SetComputeKernel(body string) {
	k.body = body
}

// ComputeKernel returns the compute body.
func (k *Kernel) ComputeKernel() string {
	return k.body
}

// Inputs returns a copy of the input ports in declaration order.
func (k *Kernel) Inputs() []Port {
	return append([]Port(nil), k.inputs...)
}

// Outputs returns a copy of the output ports in declaration order.
func (k *Kernel) Outputs() []Port {
	return append([]Port(nil), k.outputs...)
}

// Port looks up a port by direction and name.
func (k *Kernel) Port(dir Direction, name string) (Port, bool) {
	ports := k.inputs
	if dir == Output {
		ports = k.outputs
	}
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

func (k *Kernel) clone() *Kernel {
	return &Kernel{
		name:    k.name,
		inputs:  k.Inputs(),
		outputs: k.Outputs(),
		body:    k.body,
	}
}

// validateName rejects empty names and names containing whitespace.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, " \t\n\r") {
		return fmt.Errorf("%w: %q cannot contain whitespace", ErrInvalidName, name)
	}
	return nil
}
