package graph

import (
	"fmt"
	"slices"

	"github.com/roach88/twinrx/internal/node"
)

// Plan is the result of a successful Build: the workers in resolution order
// plus the indexes the resolver needs.
type Plan struct {
	workers  []Worker
	position map[string]int
	readers  map[string][]int // node -> reader positions, ascending
	writer   map[string]int   // node -> writer position
	feedback map[string]bool
	downs    map[string]map[string]bool
}

type buildConfig struct {
	feedback []string
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// Feedback marks nodes whose edges are excluded from the precedence
// relation. A worker may then read a feedback node written by a later
// worker; the change is seen in the next resolver iteration.
func Feedback(nodes ...string) BuildOption {
	return func(c *buildConfig) {
		c.feedback = append(c.feedback, nodes...)
	}
}

// Build validates the worker declarations against the store and orders the
// workers.
//
// The checks, in order: worker names are non-empty and unique; every
// declared node exists; no node is written by two workers; no worker writes
// a UserProperty node; the precedence relation (ignoring feedback nodes) is
// acyclic. The order is topological; among workers that are ready at the
// same time the earlier-registered one comes first.
func Build(st *node.Store, workers []Worker, opts ...BuildOption) (*Plan, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	names := make([]string, len(workers))
	byName := make(map[string]int, len(workers))
	for i, w := range workers {
		name := w.Name()
		if name == "" {
			return nil, &BuildError{Code: ErrCodeEmptyWorkerName, Message: fmt.Sprintf("worker %d has no name", i)}
		}
		if _, dup := byName[name]; dup {
			return nil, &BuildError{Code: ErrCodeDuplicateWorker, Message: "worker registered twice", Workers: []string{name}}
		}
		byName[name] = i
		names[i] = name
	}

	feedback := make(map[string]bool, len(cfg.feedback))
	for _, n := range cfg.feedback {
		if !st.Has(n) {
			return nil, &BuildError{Code: ErrCodeUnknownNode, Message: "feedback node does not exist", Node: n}
		}
		feedback[n] = true
	}

	writerOf := make(map[string]string)
	readersOf := make(map[string][]string)
	for _, w := range workers {
		for _, n := range w.Reads() {
			if !st.Has(n) {
				return nil, &BuildError{Code: ErrCodeUnknownNode, Message: "worker reads a node that does not exist", Node: n, Workers: []string{w.Name()}}
			}
			readersOf[n] = append(readersOf[n], w.Name())
		}
		for _, n := range w.Writes() {
			access, err := st.Access(n)
			if err != nil {
				return nil, &BuildError{Code: ErrCodeUnknownNode, Message: "worker writes a node that does not exist", Node: n, Workers: []string{w.Name()}}
			}
			if access == node.UserProperty {
				return nil, &BuildError{Code: ErrCodeUserNodeWritten, Message: "node is written only through the property façade", Node: n, Workers: []string{w.Name()}}
			}
			if prev, taken := writerOf[n]; taken {
				return nil, &BuildError{Code: ErrCodeWriteConflict, Message: "node has two writers", Node: n, Workers: []string{prev, w.Name()}}
			}
			writerOf[n] = w.Name()
		}
	}

	g := make(precedence, len(workers))
	for _, name := range names {
		g[name] = []string{}
	}
	for _, w := range workers {
		for _, n := range w.Writes() {
			if feedback[n] {
				continue
			}
			for _, r := range readersOf[n] {
				if !slices.Contains(g[w.Name()], r) {
					g[w.Name()] = append(g[w.Name()], r)
				}
			}
		}
	}

	if cycles := findCycles(g, names); len(cycles) > 0 {
		return nil, &BuildError{Code: ErrCodeCycle, Message: "worker dependencies form a cycle", Workers: cycles[0]}
	}

	order := topoOrder(g, names, byName)

	p := &Plan{
		workers:  make([]Worker, len(order)),
		position: make(map[string]int, len(order)),
		readers:  make(map[string][]int),
		writer:   make(map[string]int),
		feedback: feedback,
		downs:    make(map[string]map[string]bool),
	}
	for pos, name := range order {
		w := workers[byName[name]]
		p.workers[pos] = w
		p.position[name] = pos
		for _, n := range w.Reads() {
			p.readers[n] = append(p.readers[n], pos)
		}
		for _, n := range w.Writes() {
			p.writer[n] = pos
		}
	}
	return p, nil
}

// topoOrder is Kahn's algorithm with a registration-order priority.
func topoOrder(g precedence, names []string, byName map[string]int) []string {
	indegree := make(map[string]int, len(names))
	for _, succs := range g {
		for _, s := range succs {
			indegree[s]++
		}
	}

	var ready []string
	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b string) int { return byName[a] - byName[b] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, s := range g[next] {
			indegree[s]--
			if indegree[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	return order
}

// Workers returns the workers in resolution order.
func (p *Plan) Workers() []Worker {
	return slices.Clone(p.workers)
}

// Order returns the worker names in resolution order.
func (p *Plan) Order() []string {
	names := make([]string, len(p.workers))
	for i, w := range p.workers {
		names[i] = w.Name()
	}
	return names
}

// Len returns the number of workers.
func (p *Plan) Len() int { return len(p.workers) }

// Position returns a worker's index in the resolution order.
func (p *Plan) Position(worker string) (int, bool) {
	pos, ok := p.position[worker]
	return pos, ok
}

// Readers returns the positions of the workers reading n, ascending.
func (p *Plan) Readers(n string) []int {
	return p.readers[n]
}

// Writer returns the position of the worker writing n.
func (p *Plan) Writer(n string) (int, bool) {
	pos, ok := p.writer[n]
	return pos, ok
}

// IsFeedback reports whether n was declared a feedback node.
func (p *Plan) IsFeedback(n string) bool {
	return p.feedback[n]
}

// Affects reports whether a change to any of the dirty nodes can reach
// target through the workers, including through feedback nodes.
func (p *Plan) Affects(dirty []string, target string) bool {
	for _, d := range dirty {
		if d == target || p.downstream(d)[target] {
			return true
		}
	}
	return false
}

// downstream returns every node reachable from n. Results are memoized, so
// callers must hold the board lock.
func (p *Plan) downstream(n string) map[string]bool {
	if d, ok := p.downs[n]; ok {
		return d
	}
	seen := make(map[string]bool)
	queue := []string{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, pos := range p.readers[cur] {
			for _, out := range p.workers[pos].Writes() {
				if !seen[out] {
					seen[out] = true
					queue = append(queue, out)
				}
			}
		}
	}
	p.downs[n] = seen
	return seen
}
