package kcodegen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/birdayz/tilestreams/kdag"
	"github.com/birdayz/tilestreams/kserde"
)

type canonicalPort struct {
	Name   string      `json:"name"`
	Format kdag.Format `json:"format"`
}

type canonicalNode struct {
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Inputs  []canonicalPort `json:"inputs,omitempty"`
	Outputs []canonicalPort `json:"outputs,omitempty"`
	Body    string          `json:"body,omitempty"`
	Count   int             `json:"count,omitempty"`
	Format  *kdag.Format    `json:"format,omitempty"`
}

type canonicalGraph struct {
	Version     int                `json:"version"`
	Nodes       []canonicalNode    `json:"nodes"`
	Connections [][2]kdag.Endpoint `json:"connections"`
	Options     Options            `json:"options"`
}

// fingerprintVersion changes whenever generated code changes for the same
// input, invalidating cached programs.
const fingerprintVersion = 1

var canonicalSerializer = kserde.JSONSerializer[canonicalGraph]()

// Fingerprint hashes everything code generation depends on: nodes in arena
// order with their ports, bodies and stream geometry, the connections and
// the options. Host data is not part of it.
func Fingerprint(g *kdag.Graph, opts Options) (string, error) {
	cg := canonicalGraph{
		Version: fingerprintVersion,
		Options: opts,
	}
	for _, node := range g.Nodes {
		cn := canonicalNode{Kind: node.Kind.String(), Name: node.Name()}
		if node.ExposesPorts() {
			cn.Inputs = canonicalPorts(node.Kernel.Inputs())
			cn.Outputs = canonicalPorts(node.Kernel.Outputs())
			cn.Body = node.Kernel.ComputeKernel()
		} else {
			format := node.Stream.Format()
			cn.Count = node.Stream.Count()
			cn.Format = &format
		}
		cg.Nodes = append(cg.Nodes, cn)
	}
	for _, c := range g.Connections {
		cg.Connections = append(cg.Connections, [2]kdag.Endpoint{c.From, c.To})
	}

	data, err := canonicalSerializer(cg)
	if err != nil {
		return "", fmt.Errorf("serialize graph: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalPorts(ports []kdag.Port) []canonicalPort {
	out := make([]canonicalPort, len(ports))
	for i, p := range ports {
		out[i] = canonicalPort{Name: p.Name, Format: p.Format}
	}
	return out
}
