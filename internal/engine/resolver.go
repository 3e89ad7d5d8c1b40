package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/node"
)

// Pass records one resolution pass.
type Pass struct {
	// Session is the id of the container that ran the pass.
	Session string
	// Seq is the pass's position on the store clock.
	Seq        int64
	Forced     bool
	Iterations int
	// Workers lists the workers in the order they ran. A worker appears
	// once per iteration it ran in.
	Workers []string
	// Changed lists the nodes whose value changed, in first-change order.
	Changed []string
	// Snapshot holds every stored value after the pass.
	Snapshot node.Snapshot
}

// Resolver runs resolution passes over a plan. It is not safe for
// concurrent use; the container serialises calls.
type Resolver struct {
	board   string
	store   *node.Store
	plan    *graph.Plan
	budget  int
	log     *slog.Logger
	metrics *Metrics
	running bool
}

// NewResolver creates a resolver. budget is the per-pass iteration limit.
func NewResolver(board string, st *node.Store, plan *graph.Plan, budget int, log *slog.Logger, m *Metrics) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		board:   board,
		store:   st,
		plan:    plan,
		budget:  budget,
		log:     log,
		metrics: m,
	}
}

// ResolveAll runs one pass.
//
// With force set, the first iteration runs every worker in plan order.
// Otherwise each iteration takes the dirty set and runs, in plan order, the
// workers reading any node in it or any node changed earlier in the same
// iteration. Changed nodes are cleared as they propagate, except feedback
// nodes, which stay dirty for the next iteration. The pass ends when an
// iteration starts with nothing dirty.
//
// It returns nil, nil when no worker ran.
func (r *Resolver) ResolveAll(force bool) (*Pass, error) {
	if r.running {
		return nil, &ResolveError{Code: ErrCodeReentrant, Message: "resolution pass started from inside a pass"}
	}
	r.running = true
	defer func() { r.running = false }()

	budget := NewIterationBudget(r.budget)
	pass := &Pass{Forced: force}
	changed := make(map[string]bool)

	for {
		dirty := r.store.TakeDirty()
		if len(dirty) == 0 && !force {
			break
		}
		if err := budget.Check(); err != nil {
			var be *BudgetExceededError
			errors.As(err, &be)
			r.restore(dirty)
			r.metrics.observeFailure(r.board, ErrCodeNonConvergence)
			return nil, newNonConvergenceError(be, dirty)
		}
		pass.Iterations++

		active := make(map[string]bool, len(dirty))
		for _, n := range dirty {
			active[n] = true
		}

		for _, w := range r.plan.Workers() {
			if !force && !readsAny(w, active) {
				continue
			}

			r.log.Debug("running worker", "board", r.board, "worker", w.Name(), "iteration", pass.Iterations)
			scope := graph.NewScope(r.store, w)
			err := w.Run(scope)
			if err == nil {
				err = scope.Err()
			}
			if err != nil {
				r.restore(dirty)
				r.metrics.observeFailure(r.board, ErrCodeWorkerFailed)
				return nil, newWorkerError(w.Name(), err)
			}
			pass.Workers = append(pass.Workers, w.Name())
			r.metrics.observeWorker(r.board, w.Name())

			for _, n := range scope.Changed() {
				if !changed[n] {
					changed[n] = true
					pass.Changed = append(pass.Changed, n)
				}
				if r.plan.IsFeedback(n) {
					continue
				}
				active[n] = true
				r.store.ClearDirty(n)
			}
		}
		force = false
	}

	if len(pass.Workers) == 0 {
		return nil, nil
	}
	pass.Seq = r.store.Clock().Next()
	pass.Snapshot = r.store.Snapshot()
	r.metrics.observePass(r.board, pass)
	return pass, nil
}

// restore re-marks nodes dirty after a failed pass so the pending work is
// not lost.
func (r *Resolver) restore(names []string) {
	for _, n := range names {
		r.store.MarkDirty(n)
	}
}

func readsAny(w graph.Worker, active map[string]bool) bool {
	for _, n := range w.Reads() {
		if active[n] {
			return true
		}
	}
	return false
}
