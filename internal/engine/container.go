package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/node"
)

// Observer receives every completed pass that ran at least one worker.
// Observers run with the board lock held, after the store has settled, and
// are the only place where resolved values leave the engine. They must work
// from the Pass: Set, Get, Sense and ResolveAll called while observers run
// fail with REENTRANT, from any goroutine.
type Observer interface {
	Observe(ctx context.Context, p *Pass) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, p *Pass) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, p *Pass) error { return f(ctx, p) }

type containerState int

const (
	stateBuilding containerState = iota
	stateReady
	stateBroken
)

// Container owns one board's node store, workers and resolver, behind a
// single lock.
type Container struct {
	mu        sync.Mutex
	observing atomic.Bool

	name     string
	session  string
	store    *node.Store
	workers  []graph.Worker
	feedback []string
	plan     *graph.Plan
	resolver *Resolver
	state    containerState

	log       *slog.Logger
	metrics   *Metrics
	budget    int
	ctx       context.Context
	observers []Observer
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.log = l }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// WithIterationBudget sets the per-pass iteration limit.
//
// Default: DefaultIterationBudget.
func WithIterationBudget(n int) Option {
	return func(c *Container) { c.budget = n }
}

// WithObserver adds a pass observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(c *Container) { c.observers = append(c.observers, o) }
}

// WithContext sets the context handed to observers.
func WithContext(ctx context.Context) Option {
	return func(c *Container) { c.ctx = ctx }
}

// WithSessionGenerator sets the session id source. The default generates
// UUIDv7 ids.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(c *Container) { c.session = g.Generate() }
}

// New creates an empty container in the building state.
func New(name string, opts ...Option) *Container {
	c := &Container{
		name:   name,
		store:  node.New(),
		log:    slog.Default(),
		budget: DefaultIterationBudget,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == "" {
		c.session = UUIDv7Generator{}.Generate()
	}
	return c
}

// Name returns the board name.
func (c *Container) Name() string { return c.name }

// Session returns the session id tagging this container's passes.
func (c *Container) Session() string { return c.session }

// Declare creates a node. Nodes can only be declared before Initialize.
func Declare[T comparable](c *Container, name string, initial T, opts ...node.Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateBuilding {
		return &ResolveError{Code: ErrCodeAlreadyInitialized, Message: fmt.Sprintf("cannot declare node %q", name)}
	}
	return node.Create(c.store, name, initial, opts...)
}

// AddWorker registers a worker. Registration order is the tie-break of the
// resolution order.
func (c *Container) AddWorker(w graph.Worker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateBuilding {
		return &ResolveError{Code: ErrCodeAlreadyInitialized, Message: fmt.Sprintf("cannot add worker %q", w.Name())}
	}
	c.workers = append(c.workers, w)
	return nil
}

// AddFeedback marks nodes as feedback nodes for the build.
func (c *Container) AddFeedback(nodes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateBuilding {
		return &ResolveError{Code: ErrCodeAlreadyInitialized, Message: "cannot add feedback nodes"}
	}
	c.feedback = append(c.feedback, nodes...)
	return nil
}

// AddObserver registers a pass observer.
func (c *Container) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Initialize builds the plan and runs the forced first pass. A build error
// leaves the container permanently unusable.
func (c *Container) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateBuilding {
		return &ResolveError{Code: ErrCodeAlreadyInitialized, Message: "container already initialized"}
	}

	plan, err := graph.Build(c.store, c.workers, graph.Feedback(c.feedback...))
	if err != nil {
		c.state = stateBroken
		c.log.Error("graph build failed", "board", c.name, "error", err)
		return fmt.Errorf("initialize %s: %w", c.name, err)
	}
	c.plan = plan
	c.resolver = NewResolver(c.name, c.store, plan, c.budget, c.log, c.metrics)
	c.state = stateReady

	c.log.Info("graph built",
		"board", c.name,
		"session", c.session,
		"nodes", c.store.Len(),
		"workers", plan.Len(),
	)

	if err := c.resolveLocked(true); err != nil {
		return fmt.Errorf("initialize %s: %w", c.name, err)
	}
	return nil
}

// Initialized reports whether Initialize succeeded.
func (c *Container) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// ResolveAll runs a pass. See Resolver.ResolveAll.
func (c *Container) ResolveAll(force bool) error {
	if err := c.enter(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if err := c.ready(); err != nil {
		return err
	}
	return c.resolveLocked(force)
}

// enter takes the board lock. While observers hold it, enter fails with
// REENTRANT instead of blocking.
func (c *Container) enter() error {
	if c.mu.TryLock() {
		return nil
	}
	if c.observing.Load() {
		return &ResolveError{Code: ErrCodeReentrant, Message: fmt.Sprintf("board %s is delivering a pass to observers", c.name)}
	}
	c.mu.Lock()
	return nil
}

func (c *Container) ready() error {
	if c.state != stateReady {
		return &ResolveError{Code: ErrCodeNotInitialized, Message: fmt.Sprintf("board %s is not initialized", c.name)}
	}
	return nil
}

func (c *Container) resolveLocked(force bool) error {
	pass, err := c.resolver.ResolveAll(force)
	if err != nil {
		c.log.Error("resolution failed", "board", c.name, "forced", force, "error", err)
		return err
	}
	if pass == nil {
		return nil
	}
	pass.Session = c.session

	c.log.Info("pass resolved",
		"board", c.name,
		"seq", pass.Seq,
		"forced", pass.Forced,
		"iterations", pass.Iterations,
		"workers", len(pass.Workers),
		"changed", len(pass.Changed),
	)

	var errs []error
	c.observing.Store(true)
	for _, o := range c.observers {
		if err := o.Observe(c.ctx, pass); err != nil {
			errs = append(errs, err)
		}
	}
	c.observing.Store(false)
	if len(errs) > 0 {
		c.metrics.observeFailure(c.name, ErrCodeObserverFailed)
		return &ResolveError{Code: ErrCodeObserverFailed, Message: "pass observer failed", Err: errors.Join(errs...)}
	}
	return nil
}

// Set writes a node on behalf of the property façade and, if resolve is
// set, runs a pass. Worker-owned property nodes are rejected. It returns the stored value, after the node's coercer.
func Set[T comparable](c *Container, name string, v T, resolve bool) (T, error) {
	var zero T
	if err := c.enter(); err != nil {
		return zero, err
	}
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return zero, err
	}
	if acc, err := c.store.Access(name); err != nil {
		return zero, err
	} else if acc == node.Property {
		return zero, &node.Error{Code: node.ErrCodeReadOnly, Node: name}
	}
	stored, _, err := node.Write(c.store, name, v)
	if err != nil {
		return zero, err
	}
	if resolve {
		if err := c.resolveLocked(false); err != nil {
			return zero, err
		}
	}
	return stored, nil
}

// Get returns a node's stored value. With resolve set, a pass runs first if
// any dirty node can reach the requested one.
func Get[T any](c *Container, name string, resolve bool) (T, error) {
	var zero T
	if err := c.enter(); err != nil {
		return zero, err
	}
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return zero, err
	}
	if resolve && c.plan.Affects(c.store.Dirty(), name) {
		if err := c.resolveLocked(false); err != nil {
			return zero, err
		}
	}
	return node.Get[T](c.store, name)
}

// Sense reads a node through its publisher, under the board lock. With
// resolve set, any pending write is resolved first so that observers have
// handed the hardware its settings before the publisher samples it.
func Sense[T any](c *Container, name string, resolve bool) (T, error) {
	var zero T
	if err := c.enter(); err != nil {
		return zero, err
	}
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return zero, err
	}
	if resolve && len(c.store.Dirty()) > 0 {
		if err := c.resolveLocked(false); err != nil {
			return zero, err
		}
	}
	return node.Read[T](c.store, name)
}

// Pending reports whether a dirty node can reach name.
func (c *Container) Pending(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan != nil && c.plan.Affects(c.store.Dirty(), name)
}

// Snapshot copies the stored values.
func (c *Container) Snapshot() node.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Dot renders the resolution plan. It is empty before Initialize.
func (c *Container) Dot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plan == nil {
		return ""
	}
	return c.plan.Dot(c.name)
}
