package kartifact

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/birdayz/tilestreams/kcodegen"
	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kserde"
)

// Content types of collected artifacts.
const (
	ContentTypeDOT    = "text/vnd.graphviz"
	ContentTypeJSON   = "application/json"
	ContentTypeSource = "text/x-go"
)

// Artifact is one named file describing a compiled graph.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store persists artifacts. Names use "/" as separator.
type Store interface {
	Put(ctx context.Context, a Artifact) error
}

var programSerializer = kserde.JSONSerializer[*kcodegen.Program]()

// Collect renders the artifacts of a compiled graph: graph.dot,
// program.json and one source file per routine under routines/.
func Collect(g *kdag.Graph, p *kcodegen.Program) ([]Artifact, error) {
	var dot bytes.Buffer
	if err := g.WriteDOT(&dot); err != nil {
		return nil, fmt.Errorf("render graph: %w", err)
	}

	program, err := programSerializer(p)
	if err != nil {
		return nil, fmt.Errorf("serialize program: %w", err)
	}

	artifacts := []Artifact{
		{Name: "graph.dot", ContentType: ContentTypeDOT, Data: dot.Bytes()},
		{Name: "program.json", ContentType: ContentTypeJSON, Data: program},
	}
	for _, r := range p.Routines {
		artifacts = append(artifacts, Artifact{
			Name:        "routines/" + r.Name + ".go",
			ContentType: ContentTypeSource,
			Data:        []byte(r.Source),
		})
	}
	return artifacts, nil
}

// Publish stores every artifact under prefix. It keeps going after a failed
// Put and returns all failures.
func Publish(ctx context.Context, store Store, prefix string, artifacts []Artifact) error {
	var result *multierror.Error
	for _, a := range artifacts {
		if prefix != "" {
			a.Name = strings.TrimSuffix(prefix, "/") + "/" + a.Name
		}
		if err := store.Put(ctx, a); err != nil {
			result = multierror.Append(result, fmt.Errorf("publish %s: %w", a.Name, err))
		}
	}
	return result.ErrorOrNil()
}
