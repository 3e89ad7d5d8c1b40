package harness

// TraceEvent is one resolution pass seen during a run.
type TraceEvent struct {
	// Step is the flow step that triggered the pass, 0 during construction.
	Step       int64    `json:"step"`
	Seq        int64    `json:"seq"`
	Forced     bool     `json:"forced"`
	Iterations int      `json:"iterations"`
	Workers    []string `json:"workers"`
	Changed    []string `json:"changed"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
	// Snapshot holds the values of the scenario's snapshot properties,
	// keyed "<target>:<path>".
	Snapshot map[string]any `json:"snapshot,omitempty"`
	// Settings are the final hardware settings, flattened.
	Settings map[string]any `json:"settings,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Snapshot: make(map[string]any),
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
