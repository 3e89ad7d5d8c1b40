package graph

import (
	"fmt"
	"strings"
)

// Dot renders the bipartite node/worker graph in Graphviz format. Workers
// appear in resolution order; feedback edges are dashed.
func (p *Plan) Dot(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")

	declared := make(map[string]bool)
	var nodes []string
	declare := func(n string) {
		if !declared[n] {
			declared[n] = true
			nodes = append(nodes, n)
		}
	}

	for _, w := range p.workers {
		fmt.Fprintf(&b, "  %q [shape=box, label=%q];\n", "w:"+w.Name(), w.Name())
		for _, n := range w.Reads() {
			declare(n)
		}
		for _, n := range w.Writes() {
			declare(n)
		}
	}
	for _, n := range nodes {
		fmt.Fprintf(&b, "  %q [shape=ellipse, label=%q];\n", "n:"+n, n)
	}
	for _, w := range p.workers {
		for _, n := range w.Reads() {
			fmt.Fprintf(&b, "  %q -> %q%s;\n", "n:"+n, "w:"+w.Name(), p.edgeStyle(n))
		}
		for _, n := range w.Writes() {
			fmt.Fprintf(&b, "  %q -> %q%s;\n", "w:"+w.Name(), "n:"+n, p.edgeStyle(n))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func (p *Plan) edgeStyle(n string) string {
	if p.feedback[n] {
		return " [style=dashed]"
	}
	return ""
}
