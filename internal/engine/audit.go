package engine

import (
	"fmt"
	"io"
	"slices"
)

// NodeInfo describes one node in an Audit.
type NodeInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Access string `json:"access"`
	Value  any    `json:"value"`
	Dirty  bool   `json:"dirty,omitempty"`
}

// WorkerInfo describes one worker in an Audit.
type WorkerInfo struct {
	Name   string   `json:"name"`
	Reads  []string `json:"reads"`
	Writes []string `json:"writes"`
}

// Audit is a listing of a container's nodes and workers.
type Audit struct {
	Board   string       `json:"board"`
	Session string       `json:"session"`
	Nodes   []NodeInfo   `json:"nodes"`
	Workers []WorkerInfo `json:"workers"`
}

// Audit lists the nodes in creation order and the workers in resolution
// order (registration order before Initialize).
func (c *Container) Audit() Audit {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := Audit{Board: c.name, Session: c.session}
	for _, name := range c.store.Names() {
		typ, _ := c.store.Type(name)
		acc, _ := c.store.Access(name)
		val, _ := c.store.Value(name)
		a.Nodes = append(a.Nodes, NodeInfo{
			Name:   name,
			Type:   typ.String(),
			Access: acc.String(),
			Value:  val,
			Dirty:  c.store.IsDirty(name),
		})
	}

	workers := c.workers
	if c.plan != nil {
		workers = c.plan.Workers()
	}
	for _, w := range workers {
		a.Workers = append(a.Workers, WorkerInfo{
			Name:   w.Name(),
			Reads:  slices.Clone(w.Reads()),
			Writes: slices.Clone(w.Writes()),
		})
	}
	return a
}

// Write renders the audit as plain text.
func (a Audit) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "board %s (session %s)\n", a.Board, a.Session); err != nil {
		return err
	}
	fmt.Fprintf(w, "nodes: %d\n", len(a.Nodes))
	for _, n := range a.Nodes {
		fmt.Fprintf(w, "  %-40s %-10s %-8s %v\n", n.Name, n.Type, n.Access, n.Value)
	}
	fmt.Fprintf(w, "workers: %d\n", len(a.Workers))
	for i, wk := range a.Workers {
		fmt.Fprintf(w, "  %2d %s\n", i, wk.Name)
		fmt.Fprintf(w, "     reads:  %v\n", wk.Reads)
		fmt.Fprintf(w, "     writes: %v\n", wk.Writes)
	}
	return nil
}
