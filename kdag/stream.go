package kdag

import "fmt"

// StreamRole is inferred from how a stream is connected.
type StreamRole int

const (
	RoleUnbound StreamRole = iota
	RoleSource
	RoleSink
)

func (r StreamRole) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	default:
		return "unbound"
	}
}

// Stream wraps a host-resident buffer of Count elements.
//
// The host slice is shared with the caller: a sink stream's results are
// written into it after execution.
type Stream struct {
	name   string
	host   []float32
	count  int
	format Format
}

// NewStream creates a stream over the first count elements of host.
func NewStream(name string, host []float32, count int, format Format) (*Stream, error) {
	if err := validateName(name); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("stream %q: %w", name, err)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: stream %q has element count %d", ErrInvalidStream, name, count)
	}
	if count > len(host) {
		return nil, fmt.Errorf("%w: stream %q has element count %d but host buffer holds %d",
			ErrInvalidStream, name, count, len(host))
	}
	return &Stream{
		name:   name,
		host:   host,
		count:  count,
		format: format,
	}, nil
}

// Name returns the stream name.
func (s *Stream) Name() string {
	return s.name
}

// Host returns the host buffer.
func (s *Stream) Host() []float32 {
	return s.host
}

// Count returns the number of elements the stream carries.
func (s *Stream) Count() int {
	return s.count
}

// Format returns the stream's data format.
func (s *Stream) Format() Format {
	return s.format
}

// TileCount returns the number of tiles needed to hold Count elements.
func (s *Stream) TileCount() int {
	per := s.format.TileElements()
	return (s.count + per - 1) / per
}

func (s *Stream) clone() *Stream {
	c := *s
	return &c
}
