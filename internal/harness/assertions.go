package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

func (h *Harness) evaluate(assertions []Assertion, result *Result) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.check(a, result); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) check(a Assertion, result *Result) error {
	switch a.Type {
	case AssertProperty:
		got, err := h.read(a.Target, a.Path)
		if err != nil {
			return err
		}
		if !sameValue(a.Expect, got) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s:%s = %v", a.Target, a.Path, a.Expect), Actual: fmt.Sprint(got)}
		}
	case AssertSettings:
		got, ok := result.Settings[a.Key]
		if !ok {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %v", a.Key, a.Expect), Actual: "no such settings field"}
		}
		if !sameValue(a.Expect, got) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %v", a.Key, a.Expect), Actual: fmt.Sprint(got)}
		}
	case AssertWorkerRan:
		for _, ev := range passes(result.Trace, a.Step) {
			if slices.Contains(ev.Workers, a.Worker) {
				return nil
			}
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("worker %s ran%s", a.Worker, stepSuffix(a.Step)), Actual: "not found in trace"}
	case AssertChanged:
		for _, ev := range passes(result.Trace, a.Step) {
			if slices.Contains(ev.Changed, a.Node) {
				return nil
			}
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("node %s changed%s", a.Node, stepSuffix(a.Step)), Actual: "not found in trace"}
	case AssertPassCount:
		if n := len(passes(result.Trace, a.Step)); n != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d passes%s", a.Count, stepSuffix(a.Step)), Actual: fmt.Sprintf("%d passes", n)}
		}
	}
	return nil
}

func passes(trace []TraceEvent, step *int64) []TraceEvent {
	if step == nil {
		return trace
	}
	var out []TraceEvent
	for _, ev := range trace {
		if ev.Step == *step {
			out = append(out, ev)
		}
	}
	return out
}

func stepSuffix(step *int64) string {
	if step == nil {
		return ""
	}
	return fmt.Sprintf(" during step %d", *step)
}
