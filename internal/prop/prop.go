// Package prop is the user-facing property façade over an engine container.
//
// A Tree maps slash-separated property paths onto graph nodes. Writable
// properties are either a desired/coerced pair (writes go to the desired
// node, reads come from the coerced one) or a single node. Each carries a
// static resolve policy deciding whether a write resolves immediately or
// waits for the next read. Trees also hold static values, ranges, option
// sets and sensors.
package prop

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"sync"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/value"
)

// Policy is a set of resolve triggers.
type Policy uint8

const (
	// ResolveNone never resolves from the façade.
	ResolveNone Policy = 0
	// ResolveOnRead resolves pending changes before a read.
	ResolveOnRead Policy = 1 << 0
	// ResolveOnWrite resolves after every write.
	ResolveOnWrite Policy = 1 << 1
	// ResolveOnReadWrite does both.
	ResolveOnReadWrite = ResolveOnRead | ResolveOnWrite
)

func (p Policy) String() string {
	switch p {
	case ResolveNone:
		return "none"
	case ResolveOnRead:
		return "read"
	case ResolveOnWrite:
		return "write"
	case ResolveOnReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// Kind classifies a tree entry.
type Kind int

const (
	KindConst Kind = iota
	KindPlain
	KindNode
	KindDual
	KindView
	KindSensor
	KindRange
	KindOptions
)

func (k Kind) String() string {
	return [...]string{"const", "plain", "node", "dual", "view", "sensor", "range", "options"}[k]
}

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrReadOnly        = errors.New("property is read-only")
	ErrNoRange         = errors.New("property is not a range")
	ErrNoOptions       = errors.New("property is not an option set")
	ErrTypeMismatch    = errors.New("property type mismatch")
)

type entry struct {
	kind   Kind
	policy Policy
	typ    reflect.Type
	rng    value.Range
	opts   value.Options
	get    func() (any, error)
	set    func(v any) (any, error)
}

// Tree is one property namespace, typically a channel or the board.
type Tree struct {
	c       *engine.Container
	root    string
	entries map[string]*entry
	paths   []string
}

// NewTree creates an empty tree. root is informational, used in errors and
// listings.
func NewTree(c *engine.Container, root string) *Tree {
	return &Tree{c: c, root: root, entries: make(map[string]*entry)}
}

// Root returns the tree's root name.
func (t *Tree) Root() string { return t.root }

func (t *Tree) add(path string, e *entry) error {
	if _, dup := t.entries[path]; dup {
		return fmt.Errorf("%s/%s: property already registered", t.root, path)
	}
	t.entries[path] = e
	t.paths = append(t.paths, path)
	return nil
}

// AddConst registers a fixed read-only value.
func AddConst[T any](t *Tree, path string, v T) error {
	return t.add(path, &entry{
		kind: KindConst,
		typ:  reflect.TypeFor[T](),
		get:  func() (any, error) { return v, nil },
	})
}

// AddPlain registers a writable value kept outside the graph. A non-nil
// coerce is applied on every write.
func AddPlain[T comparable](t *Tree, path string, initial T, coerce func(T) T) error {
	var mu sync.Mutex
	if coerce != nil {
		initial = coerce(initial)
	}
	v := initial
	return t.add(path, &entry{
		kind: KindPlain,
		typ:  reflect.TypeFor[T](),
		get: func() (any, error) {
			mu.Lock()
			defer mu.Unlock()
			return v, nil
		},
		set: func(nv any) (any, error) {
			mu.Lock()
			defer mu.Unlock()
			v = nv.(T)
			if coerce != nil {
				v = coerce(v)
			}
			return v, nil
		},
	})
}

// AddDual registers a desired/coerced pair. Writes store into desired and,
// under ResolveOnWrite, resolve and return the coerced value; otherwise they
// return the stored desired value. Reads return coerced, resolving first
// under ResolveOnRead.
func AddDual[T comparable](t *Tree, path, desired, coerced string, policy Policy) error {
	c := t.c
	return t.add(path, &entry{
		kind:   KindDual,
		policy: policy,
		typ:    reflect.TypeFor[T](),
		get: func() (any, error) {
			return engine.Get[T](c, coerced, policy&ResolveOnRead != 0)
		},
		set: func(v any) (any, error) {
			stored, err := engine.Set(c, desired, v.(T), policy&ResolveOnWrite != 0)
			if err != nil {
				return nil, err
			}
			if policy&ResolveOnWrite == 0 {
				return stored, nil
			}
			return engine.Get[T](c, coerced, false)
		},
	})
}

// AddNode registers a writable single-node property.
func AddNode[T comparable](t *Tree, path, name string, policy Policy) error {
	c := t.c
	return t.add(path, &entry{
		kind:   KindNode,
		policy: policy,
		typ:    reflect.TypeFor[T](),
		get: func() (any, error) {
			return engine.Get[T](c, name, policy&ResolveOnRead != 0)
		},
		set: func(v any) (any, error) {
			return engine.Set(c, name, v.(T), policy&ResolveOnWrite != 0)
		},
	})
}

// AddView registers a read-only view of a node, typically one written by
// a worker. Reads resolve pending changes first.
func AddView[T any](t *Tree, path, name string) error {
	c := t.c
	return t.add(path, &entry{
		kind:   KindView,
		policy: ResolveOnRead,
		typ:    reflect.TypeFor[T](),
		get: func() (any, error) {
			return engine.Get[T](c, name, true)
		},
	})
}

// AddSensor registers a read-only value served by the node's publisher.
// Reads resolve pending writes first.
func AddSensor[T any](t *Tree, path, name string) error {
	c := t.c
	return t.add(path, &entry{
		kind:   KindSensor,
		policy: ResolveOnRead,
		typ:    reflect.TypeFor[T](),
		get: func() (any, error) {
			return engine.Sense[T](c, name, true)
		},
	})
}

// AddRange registers a static range.
func AddRange(t *Tree, path string, r value.Range) error {
	return t.add(path, &entry{
		kind: KindRange,
		typ:  reflect.TypeFor[value.Range](),
		rng:  r,
		get:  func() (any, error) { return r, nil },
	})
}

// AddOptions registers a static option set.
func AddOptions(t *Tree, path string, o value.Options) error {
	return t.add(path, &entry{
		kind: KindOptions,
		typ:  reflect.TypeFor[value.Options](),
		opts: o,
		get:  func() (any, error) { return slices.Clone(o), nil },
	})
}

func (t *Tree) lookup(path string) (*entry, error) {
	e, ok := t.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownProperty, t.root, path)
	}
	return e, nil
}

// Get reads a property as T.
func Get[T any](t *Tree, path string) (T, error) {
	var zero T
	v, err := t.GetValue(path)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s/%s is %T", ErrTypeMismatch, t.root, path, v)
	}
	return tv, nil
}

// Set writes a property as T and returns the value read back.
func Set[T comparable](t *Tree, path string, v T) (T, error) {
	var zero T
	e, err := t.lookup(path)
	if err != nil {
		return zero, err
	}
	if e.set == nil {
		return zero, fmt.Errorf("%w: %s/%s", ErrReadOnly, t.root, path)
	}
	if e.typ != reflect.TypeFor[T]() {
		return zero, fmt.Errorf("%w: %s/%s holds %s", ErrTypeMismatch, t.root, path, e.typ)
	}
	out, err := e.set(v)
	if err != nil {
		return zero, fmt.Errorf("set %s/%s: %w", t.root, path, err)
	}
	return out.(T), nil
}

// GetValue reads a property untyped.
func (t *Tree) GetValue(path string) (any, error) {
	e, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	v, err := e.get()
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", t.root, path, err)
	}
	return v, nil
}

// SetValue writes a property from an untyped value, converting numbers,
// numeric strings and enum strings to the property's type. It is the entry
// point for command-line, plan and scenario drivers.
func (t *Tree) SetValue(path string, v any) (any, error) {
	e, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if e.set == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrReadOnly, t.root, path)
	}
	cv, err := convert(v, e.typ)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrTypeMismatch, t.root, path, err)
	}
	out, err := e.set(cv)
	if err != nil {
		return nil, fmt.Errorf("set %s/%s: %w", t.root, path, err)
	}
	return out, nil
}

// Range returns a range entry.
func (t *Tree) Range(path string) (value.Range, error) {
	e, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if e.kind != KindRange {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoRange, t.root, path)
	}
	return e.rng, nil
}

// Options returns an option set entry.
func (t *Tree) Options(path string) (value.Options, error) {
	e, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	if e.kind != KindOptions {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoOptions, t.root, path)
	}
	return slices.Clone(e.opts), nil
}

// Paths returns the property paths in registration order.
func (t *Tree) Paths() []string { return slices.Clone(t.paths) }

// Has reports whether path is registered.
func (t *Tree) Has(path string) bool {
	_, ok := t.entries[path]
	return ok
}

// Describe returns the kind, policy and writability of a property.
func (t *Tree) Describe(path string) (Kind, Policy, bool, error) {
	e, err := t.lookup(path)
	if err != nil {
		return 0, 0, false, err
	}
	return e.kind, e.policy, e.set != nil, nil
}

func convert(v any, typ reflect.Type) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value")
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == typ {
		return v, nil
	}

	if s, ok := v.(string); ok {
		switch typ.Kind() {
		case reflect.String:
			return reflect.ValueOf(s).Convert(typ).Interface(), nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(b).Convert(typ).Interface(), nil
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(f).Convert(typ).Interface(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(n).Convert(typ).Interface(), nil
		}
		return nil, fmt.Errorf("cannot convert string to %s", typ)
	}

	if isNumeric(rv.Kind()) && isNumeric(typ.Kind()) {
		return rv.Convert(typ).Interface(), nil
	}
	if rv.Kind() == typ.Kind() && rv.CanConvert(typ) {
		return rv.Convert(typ).Interface(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, typ)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
