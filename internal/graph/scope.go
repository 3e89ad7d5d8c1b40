package graph

import (
	"fmt"

	"github.com/roach88/twinrx/internal/node"
)

// Scope is a worker's view of the store for one run. It admits reads of the
// declared read set and writes of the declared write set only.
//
// Accessors never fail loudly: the first error is recorded and returned by
// Err, and the resolver aborts the pass when it is set. This keeps worker
// bodies free of per-node error plumbing.
type Scope struct {
	store   *node.Store
	worker  string
	reads   map[string]bool
	writes  map[string]bool
	changed []string
	err     error
}

// NewScope creates a scope for one run of w.
func NewScope(st *node.Store, w Worker) *Scope {
	s := &Scope{
		store:  st,
		worker: w.Name(),
		reads:  make(map[string]bool, len(w.Reads())),
		writes: make(map[string]bool, len(w.Writes())),
	}
	for _, n := range w.Reads() {
		s.reads[n] = true
	}
	for _, n := range w.Writes() {
		s.writes[n] = true
	}
	return s
}

// Worker returns the name of the worker the scope was created for.
func (s *Scope) Worker() string { return s.worker }

// Err returns the first access error, if any.
func (s *Scope) Err() error { return s.err }

// Changed returns the nodes whose value changed during the run, in write order.
func (s *Scope) Changed() []string { return s.changed }

func (s *Scope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// In reads a declared input.
func In[T any](s *Scope, name string) T {
	var zero T
	if !s.reads[name] {
		s.fail(&AccessError{Worker: s.worker, Node: name, Op: "read"})
		return zero
	}
	v, err := node.Get[T](s.store, name)
	if err != nil {
		s.fail(fmt.Errorf("worker %s: %w", s.worker, err))
		return zero
	}
	return v
}

// Stamp returns the write stamp of a declared input. Workers use stamps to
// settle last-writer-wins precedence between inputs.
func Stamp(s *Scope, name string) int64 {
	if !s.reads[name] {
		s.fail(&AccessError{Worker: s.worker, Node: name, Op: "read"})
		return 0
	}
	st, err := s.store.Stamp(name)
	if err != nil {
		s.fail(fmt.Errorf("worker %s: %w", s.worker, err))
	}
	return st
}

// Out writes a declared output.
func Out[T comparable](s *Scope, name string, v T) {
	if !s.writes[name] {
		s.fail(&AccessError{Worker: s.worker, Node: name, Op: "write"})
		return
	}
	_, changed, err := node.Write(s.store, name, v)
	if err != nil {
		s.fail(fmt.Errorf("worker %s: %w", s.worker, err))
		return
	}
	if changed {
		s.changed = append(s.changed, name)
	}
}
