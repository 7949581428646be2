package kdag

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes the graph in Graphviz DOT format. Kernels are drawn as
// boxes listing their ports, streams as ellipses labelled with their
// inferred role. The graph does not need to be valid.
func (g *Graph) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph tilestreams {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [fontname=\"Helvetica\"];")
	fmt.Fprintln(bw, "  edge [fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw)

	for _, node := range g.Nodes {
		if node.ExposesPorts() {
			k := node.Kernel
			label := fmt.Sprintf("%s\nin: %s\nout: %s", k.Name(), portNames(k.inputs), portNames(k.outputs))
			fmt.Fprintf(bw, "  n%d [label=%s, shape=box, style=\"rounded,filled\", fillcolor=\"lightyellow\"];\n",
				node.ID, dotQuote(label))
			continue
		}

		s := node.Stream
		role := g.StreamRole(node.ID)
		color := "white"
		switch role {
		case RoleSource:
			color = "lightgreen"
		case RoleSink:
			color = "lightblue"
		}
		label := fmt.Sprintf("%s\n%s\n%d x %s", s.Name(), role, s.Count(), s.Format())
		fmt.Fprintf(bw, "  n%d [label=%s, shape=ellipse, style=\"filled\", fillcolor=\"%s\"];\n",
			node.ID, dotQuote(label), color)
	}

	fmt.Fprintln(bw)

	for _, c := range g.Connections {
		fmt.Fprintf(bw, "  n%d -> n%d [label=%s];\n", c.From.Node, c.To.Node, dotQuote(edgeLabel(c)))
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// dotQuote returns s as a quoted DOT string. Only quotes and backslashes are
// escaped; newlines become centered line breaks.
func dotQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func portNames(ports []Port) string {
	if len(ports) == 0 {
		return "-"
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func edgeLabel(c *Connection) string {
	from, to := c.From.Port, c.To.Port
	if from == "" {
		from = "*"
	}
	if to == "" {
		to = "*"
	}
	return from + " -> " + to
}
