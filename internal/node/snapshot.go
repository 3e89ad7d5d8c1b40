package node

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/twinrx/internal/value"
)

// Snapshot is an immutable copy of every stored value, taken after a
// resolution pass. Hardware collaborators and the journal consume snapshots
// instead of the live store.
type Snapshot struct {
	seq    int64
	names  []string
	values map[string]any
}

// Snapshot copies the current stored values. Publishers are not consulted.
func (s *Store) Snapshot() Snapshot {
	values := make(map[string]any, len(s.nodes))
	for name, e := range s.nodes {
		values[name] = e.val
	}
	return Snapshot{
		seq:    s.clock.Current(),
		names:  slices.Clone(s.order),
		values: values,
	}
}

// Seq returns the clock position at which the snapshot was taken.
func (sn Snapshot) Seq() int64 { return sn.seq }

// Names returns the node names in creation order.
func (sn Snapshot) Names() []string { return slices.Clone(sn.names) }

// Get returns a value untyped.
func (sn Snapshot) Get(name string) (any, bool) {
	v, ok := sn.values[name]
	return v, ok
}

// Values returns a copy of all values keyed by node name.
func (sn Snapshot) Values() map[string]any {
	return maps.Clone(sn.values)
}

// Hash returns the content hash of the snapshot values.
func (sn Snapshot) Hash() (string, error) {
	return value.Hash(value.DomainSnapshot, sn.values)
}

// Lookup returns a typed value from a snapshot.
func Lookup[T any](sn Snapshot, name string) (T, error) {
	var zero T
	v, ok := sn.values[name]
	if !ok {
		return zero, &Error{Code: ErrCodeNotFound, Node: name}
	}
	t, ok := v.(T)
	if !ok {
		return zero, &Error{Code: ErrCodeTypeMismatch, Node: name, Want: fmt.Sprintf("%T", v), Got: fmt.Sprintf("%T", zero)}
	}
	return t, nil
}
