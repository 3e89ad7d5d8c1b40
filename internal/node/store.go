package node

import (
	"fmt"
	"math"
	"reflect"
	"slices"
)

// Access classifies who may write a node.
type Access int

const (
	// Data nodes hold internal state written by workers.
	Data Access = iota
	// Property nodes are the worker-written half of a property pair.
	Property
	// UserProperty nodes are written only through the property façade.
	UserProperty
)

// String returns the access class name.
func (a Access) String() string {
	switch a {
	case Data:
		return "data"
	case Property:
		return "property"
	case UserProperty:
		return "user"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

type entry struct {
	name   string
	typ    reflect.Type
	access Access
	val    any
	dirty  bool
	stamp  int64

	coerce  func(any) any
	publish func() (any, error)
	// optType is the type the coercer or publisher was declared with.
	optType reflect.Type
}

// Store holds all nodes of one board.
type Store struct {
	nodes map[string]*entry
	order []string
	dirty []string
	clock *Clock
}

// New creates an empty store with its own clock.
func New() *Store {
	return NewWithClock(NewClock())
}

// NewWithClock creates an empty store stamping writes from clock.
func NewWithClock(clock *Clock) *Store {
	return &Store{
		nodes: make(map[string]*entry),
		clock: clock,
	}
}

// Option configures a node at creation.
type Option func(*entry)

// WithAccess sets the node's access class. The default is Data.
func WithAccess(a Access) Option {
	return func(e *entry) { e.access = a }
}

// WithCoercer attaches a write-time clamp. It also runs on the initial value.
func WithCoercer[T any](fn func(T) T) Option {
	return func(e *entry) {
		e.optType = reflect.TypeFor[T]()
		e.coerce = func(v any) any { return fn(v.(T)) }
	}
}

// WithPublisher attaches a computed read used by Read. Workers and
// resolution passes never see the publisher; they read the stored value.
func WithPublisher[T any](fn func() (T, error)) Option {
	return func(e *entry) {
		e.optType = reflect.TypeFor[T]()
		e.publish = func() (any, error) { return fn() }
	}
}

// Create adds a node holding values of type T.
//
// Fails if the name exists or if a coercer or publisher was declared for a
// different type.
func Create[T comparable](s *Store, name string, initial T, opts ...Option) error {
	if _, exists := s.nodes[name]; exists {
		return &Error{Code: ErrCodeDuplicate, Node: name}
	}

	e := &entry{
		name: name,
		typ:  reflect.TypeFor[T](),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.optType != nil && e.optType != e.typ {
		return &Error{Code: ErrCodeTypeMismatch, Node: name, Want: e.typ.String(), Got: e.optType.String()}
	}

	var v any = initial
	if e.coerce != nil {
		v = e.coerce(v)
	}
	e.val = v

	s.nodes[name] = e
	s.order = append(s.order, name)
	return nil
}

func (s *Store) lookup(name string, want reflect.Type) (*entry, error) {
	e, ok := s.nodes[name]
	if !ok {
		return nil, &Error{Code: ErrCodeNotFound, Node: name}
	}
	if want != nil && want != e.typ {
		return nil, &Error{Code: ErrCodeTypeMismatch, Node: name, Want: e.typ.String(), Got: want.String()}
	}
	return e, nil
}

// Get returns the stored value without consulting a publisher.
func Get[T any](s *Store, name string) (T, error) {
	var zero T
	e, err := s.lookup(name, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return e.val.(T), nil
}

// Read returns the node's value as seen by an external reader: the
// publisher's result if one is attached, the stored value otherwise.
func Read[T any](s *Store, name string) (T, error) {
	var zero T
	e, err := s.lookup(name, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	if e.publish == nil {
		return e.val.(T), nil
	}
	v, err := e.publish()
	if err != nil {
		return zero, fmt.Errorf("publish %s: %w", name, err)
	}
	return v.(T), nil
}

// Write applies the node's coercer, stores the result and marks the node
// dirty if the stored value changed. It returns the stored value and whether
// it changed. NaN and infinite floats are refused before coercion.
func Write[T comparable](s *Store, name string, v T) (T, bool, error) {
	var zero T
	e, err := s.lookup(name, reflect.TypeFor[T]())
	if err != nil {
		return zero, false, err
	}
	if !finite(v) {
		return zero, false, &Error{Code: ErrCodeNonFinite, Node: name}
	}

	var nv any = v
	if e.coerce != nil {
		nv = e.coerce(nv)
	}
	if nv == e.val {
		return nv.(T), false, nil
	}

	e.val = nv
	e.stamp = s.clock.Next()
	if !e.dirty {
		e.dirty = true
		s.dirty = append(s.dirty, name)
	}
	return nv.(T), true, nil
}

func finite(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return true
}

// Has reports whether a node exists.
func (s *Store) Has(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// Access returns the node's access class.
func (s *Store) Access(name string) (Access, error) {
	e, err := s.lookup(name, nil)
	if err != nil {
		return 0, err
	}
	return e.access, nil
}

// Type returns the node's Go type.
func (s *Store) Type(name string) (reflect.Type, error) {
	e, err := s.lookup(name, nil)
	if err != nil {
		return nil, err
	}
	return e.typ, nil
}

// Value returns the stored value untyped.
func (s *Store) Value(name string) (any, error) {
	e, err := s.lookup(name, nil)
	if err != nil {
		return nil, err
	}
	return e.val, nil
}

// Stamp returns the logical time of the node's last changing write, or 0 if
// it still holds its initial value.
func (s *Store) Stamp(name string) (int64, error) {
	e, err := s.lookup(name, nil)
	if err != nil {
		return 0, err
	}
	return e.stamp, nil
}

// Names returns all node names in creation order.
func (s *Store) Names() []string {
	return slices.Clone(s.order)
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	return len(s.order)
}

// Clock returns the store's logical clock.
func (s *Store) Clock() *Clock {
	return s.clock
}

// IsDirty reports whether the node changed since its flag was last cleared.
func (s *Store) IsDirty(name string) bool {
	e, ok := s.nodes[name]
	return ok && e.dirty
}

// Dirty returns the dirty node names in the order they were dirtied.
func (s *Store) Dirty() []string {
	return slices.Clone(s.dirty)
}

// MarkDirty flags a node as changed without writing it. Unknown names are
// ignored.
func (s *Store) MarkDirty(name string) {
	e, ok := s.nodes[name]
	if !ok || e.dirty {
		return
	}
	e.dirty = true
	s.dirty = append(s.dirty, name)
}

// ClearDirty clears one node's dirty flag.
func (s *Store) ClearDirty(name string) {
	e, ok := s.nodes[name]
	if !ok || !e.dirty {
		return
	}
	e.dirty = false
	s.dirty = slices.DeleteFunc(s.dirty, func(n string) bool { return n == name })
}

// TakeDirty returns the dirty node names and clears every flag.
func (s *Store) TakeDirty() []string {
	taken := s.dirty
	for _, name := range taken {
		s.nodes[name].dirty = false
	}
	s.dirty = nil
	return taken
}
