package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/twinrx/internal/twinrx"
)

// DefaultRevision is used when a scenario names no revision.
const DefaultRevision uint16 = 0x95

// Scenario is a board test scenario.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Revision is the board revision id.
	Revision uint16 `yaml:"revision,omitempty"`
	// Session fixes the session id.
	Session string `yaml:"session,omitempty"`
	// Unlocked makes the simulated synthesizers report no lock.
	Unlocked bool `yaml:"unlocked,omitempty"`

	Flow       []FlowStep  `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
	Snapshot   []PropRef   `yaml:"snapshot,omitempty"`
}

// PropRef names a property of the board ("board") or a channel tree.
type PropRef struct {
	Target string `yaml:"target"`
	Path   string `yaml:"path"`
}

// Key returns "<target>:<path>".
func (r PropRef) Key() string { return r.Target + ":" + r.Path }

// FlowStep is one property read or write. Exactly one of Set and Get is set.
type FlowStep struct {
	Target string `yaml:"target"`
	Set    string `yaml:"set,omitempty"`
	Get    string `yaml:"get,omitempty"`
	Value  any    `yaml:"value,omitempty"`

	// Expect is the value the read or write must return.
	Expect any `yaml:"expect,omitempty"`
	// Error, if set, must be a substring of the step's error.
	Error string `yaml:"error,omitempty"`
}

// Assertion checks the state at the end of a run.
type Assertion struct {
	Type string `yaml:"type"`

	// Target and Path select a property (property).
	Target string `yaml:"target,omitempty"`
	Path   string `yaml:"path,omitempty"`
	// Key selects a flattened settings field (settings).
	Key string `yaml:"key,omitempty"`
	// Worker names a worker (worker_ran).
	Worker string `yaml:"worker,omitempty"`
	// Node names a node (changed).
	Node string `yaml:"node,omitempty"`
	// Step restricts trace assertions to one flow step.
	Step *int64 `yaml:"step,omitempty"`

	Expect any `yaml:"expect,omitempty"`
	Count  int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertProperty  = "property"
	AssertSettings  = "settings"
	AssertWorkerRan = "worker_ran"
	AssertChanged   = "changed"
	AssertPassCount = "pass_count"
)

// LoadScenario reads a scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Revision == 0 {
		s.Revision = DefaultRevision
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)

	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := twinrx.LookupRevision(s.Revision); err != nil {
		return err
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 && len(s.Snapshot) == 0 {
		return fmt.Errorf("assertions or snapshot required")
	}

	for i, step := range s.Flow {
		if step.Target == "" {
			return fmt.Errorf("flow[%d]: target is required", i)
		}
		switch {
		case step.Set != "" && step.Get != "":
			return fmt.Errorf("flow[%d]: set and get are exclusive", i)
		case step.Set != "":
			if step.Value == nil {
				return fmt.Errorf("flow[%d]: value is required for set", i)
			}
		case step.Get != "":
			if step.Value != nil {
				return fmt.Errorf("flow[%d]: value is not allowed for get", i)
			}
		default:
			return fmt.Errorf("flow[%d]: set or get is required", i)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	for i, r := range s.Snapshot {
		if r.Target == "" || r.Path == "" {
			return fmt.Errorf("snapshot[%d]: target and path are required", i)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertProperty:
		if a.Target == "" || a.Path == "" {
			return fmt.Errorf("assertions[%d]: target and path are required for property", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for property", index)
		}
	case AssertSettings:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for settings", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for settings", index)
		}
	case AssertWorkerRan:
		if a.Worker == "" {
			return fmt.Errorf("assertions[%d]: worker is required for worker_ran", index)
		}
	case AssertChanged:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for changed", index)
		}
	case AssertPassCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for pass_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
