package graph

import "slices"

// precedence maps a worker name to the workers that must run after it.
type precedence map[string][]string

// findCycles returns every strongly connected component of g that forms a
// cycle, each as a path that returns to its first worker. order fixes the
// visiting order so the reported cycles are reproducible.
func findCycles(g precedence, order []string) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(g, order) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			cycles = append(cycles, cyclePath(scc, g, order))
		}
	}
	return cycles
}

func hasSelfLoop(v string, g precedence) bool {
	return slices.Contains(g[v], v)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node components without a self-loop are not cycles.
func tarjanSCC(g precedence, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of a component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, v := range order {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// cyclePath walks a component from its earliest registered member back to
// itself.
func cyclePath(scc []string, g precedence, order []string) []string {
	members := make(map[string]bool, len(scc))
	for _, v := range scc {
		members[v] = true
	}

	start := scc[0]
	for _, v := range order {
		if members[v] {
			start = v
			break
		}
	}
	if len(scc) == 1 {
		return []string{start, start}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, w := range g[current] {
			if w == start && len(path) > 1 {
				next = w
				break
			}
			if members[w] && !visited[w] {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
