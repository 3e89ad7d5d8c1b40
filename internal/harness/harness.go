package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/hw"
	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/testutil"
	"github.com/roach88/twinrx/internal/twinrx"
	"github.com/roach88/twinrx/internal/value"
)

// Harness runs one scenario against a simulated board.
type Harness struct {
	board  *twinrx.Board
	sim    *hw.Sim
	clock  *testutil.StepClock
	logger *slog.Logger

	mu    sync.Mutex
	trace []TraceEvent
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	engine []engine.Option
}

// WithLogger sets the board logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithEngineOptions passes extra options to the board's container, such as
// a journal recorder.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *runConfig) { c.engine = append(c.engine, opts...) }
}

// Observe implements engine.Observer; it records the pass in the trace.
func (h *Harness) Observe(_ context.Context, p *engine.Pass) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trace = append(h.trace, TraceEvent{
		Step:       h.clock.Current(),
		Seq:        p.Seq,
		Forced:     p.Forced,
		Iterations: p.Iterations,
		Workers:    slices.Clone(p.Workers),
		Changed:    slices.Clone(p.Changed),
	})
	return nil
}

// Run executes a scenario. Expectation and assertion failures are reported
// in the result; the error is reserved for runs that could not complete.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	rev, err := twinrx.LookupRevision(s.Revision)
	if err != nil {
		return nil, err
	}
	simOpts := []hw.Option{hw.WithLogger(cfg.logger)}
	if !s.Unlocked {
		simOpts = append(simOpts, hw.AlwaysLocked())
	}

	h := &Harness{
		sim:    hw.NewSim(rev, simOpts...),
		clock:  testutil.NewStepClock(),
		logger: cfg.logger,
	}
	eopts := append([]engine.Option{
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(s.Session)),
		engine.WithObserver(h),
	}, cfg.engine...)

	h.board, err = twinrx.Build(rev.ID, h.sim,
		twinrx.WithLogger(cfg.logger),
		twinrx.WithEngineOptions(eopts...),
	)
	if err != nil {
		return nil, fmt.Errorf("build board: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(s.Flow, result); err != nil {
		return nil, fmt.Errorf("execute flow: %w", err)
	}
	if err := h.board.Container().ResolveAll(false); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	settings, err := h.board.Settings()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	result.Settings = settings.Flatten()

	for _, ref := range s.Snapshot {
		v, err := h.read(ref.Target, ref.Path)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", ref.Key(), err)
		}
		result.Snapshot[ref.Key()] = v
	}

	h.mu.Lock()
	result.Trace = slices.Clone(h.trace)
	h.mu.Unlock()

	for _, msg := range h.evaluate(s.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) tree(target string) (*prop.Tree, error) {
	if target == "board" {
		return h.board.Props(), nil
	}
	fe, ok := h.board.Frontend(target)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", target)
	}
	return fe.Props(), nil
}

func (h *Harness) read(target, path string) (any, error) {
	t, err := h.tree(target)
	if err != nil {
		return nil, err
	}
	return t.GetValue(path)
}

// executeFlow runs the steps in order. A step whose outcome differs from its
// expectation adds an error and the flow continues.
func (h *Harness) executeFlow(flow []FlowStep, result *Result) error {
	for i, step := range flow {
		n := h.clock.Next()
		t, err := h.tree(step.Target)
		if err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		var (
			got  any
			path = step.Get
		)
		if step.Set != "" {
			path = step.Set
			got, err = t.SetValue(step.Set, step.Value)
		} else {
			got, err = t.GetValue(step.Get)
		}
		h.logger.Debug("scenario step", "step", n, "target", step.Target, "path", path, "value", got, "error", err)

		switch {
		case step.Error != "":
			if err == nil {
				result.AddError(fmt.Sprintf("flow[%d] %s:%s: expected error containing %q, got %v", i, step.Target, path, step.Error, got))
			} else if !strings.Contains(err.Error(), step.Error) {
				result.AddError(fmt.Sprintf("flow[%d] %s:%s: expected error containing %q, got %q", i, step.Target, path, step.Error, err))
			}
			continue
		case err != nil:
			result.AddError(fmt.Sprintf("flow[%d] %s:%s: %v", i, step.Target, path, err))
			continue
		}
		if step.Expect != nil && !sameValue(step.Expect, got) {
			result.AddError(fmt.Sprintf("flow[%d] %s:%s: expected %v, got %v", i, step.Target, path, step.Expect, got))
		}
	}
	return nil
}

// sameValue compares two values by canonical form.
func sameValue(want, got any) bool {
	a, err := value.MarshalCanonical(want)
	if err != nil {
		return false
	}
	b, err := value.MarshalCanonical(got)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}
