package graph

// Worker is a pure computation over a declared read set and write set.
//
// Run must derive its outputs from its inputs alone: no I/O, no state kept
// between passes, and no access to nodes outside the declared sets.
type Worker interface {
	Name() string
	Reads() []string
	Writes() []string
	Run(s *Scope) error
}

// Func adapts a function to the Worker interface.
type Func struct {
	ID  string
	In  []string
	Out []string
	Fn  func(s *Scope) error
}

func (f *Func) Name() string       { return f.ID }
func (f *Func) Reads() []string    { return f.In }
func (f *Func) Writes() []string   { return f.Out }
func (f *Func) Run(s *Scope) error { return f.Fn(s) }
