package graph

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/node"
)

func newStore(t *testing.T, names ...string) *node.Store {
	t.Helper()
	st := node.New()
	for _, n := range names {
		require.NoError(t, node.Create(st, n, 0.0))
	}
	return st
}

func copier(name, in, out string) *Func {
	return &Func{ID: name, In: []string{in}, Out: []string{out}, Fn: func(s *Scope) error {
		Out(s, out, In[float64](s, in))
		return nil
	}}
}

// TestBuild_TopologicalOrder tests precedence with registration tie-break.
func TestBuild_TopologicalOrder(t *testing.T) {
	st := newStore(t, "a", "b", "c", "x", "y")
	workers := []Worker{
		copier("consumer", "b", "c"),
		copier("independent", "x", "y"),
		copier("producer", "a", "b"),
	}

	p, err := Build(st, workers)
	require.NoError(t, err)
	assert.Equal(t, []string{"independent", "producer", "consumer"}, p.Order())
	assert.Equal(t, 3, p.Len())

	pos, ok := p.Position("consumer")
	require.True(t, ok)
	assert.Equal(t, 2, pos)
	assert.Equal(t, []int{2}, p.Readers("b"))
	w, ok := p.Writer("b")
	require.True(t, ok)
	assert.Equal(t, 1, w)
}

// TestBuild_Deterministic tests that repeated builds yield the same order.
func TestBuild_Deterministic(t *testing.T) {
	st := newStore(t, "in", "l", "r", "out1", "out2")
	mk := func() []Worker {
		return []Worker{
			copier("left", "in", "l"),
			copier("right", "in", "r"),
			copier("joinL", "l", "out1"),
			copier("joinR", "r", "out2"),
		}
	}
	first, err := Build(st, mk())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		p, err := Build(st, mk())
		require.NoError(t, err)
		assert.Equal(t, first.Order(), p.Order())
	}
	assert.Equal(t, []string{"left", "right", "joinL", "joinR"}, first.Order())
}

// TestBuild_WriteConflict tests rejection of two writers of one node.
func TestBuild_WriteConflict(t *testing.T) {
	st := newStore(t, "a", "b", "shared")
	_, err := Build(st, []Worker{
		copier("one", "a", "shared"),
		copier("two", "b", "shared"),
	})
	require.Error(t, err)
	assert.True(t, IsWriteConflictError(err))

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "shared", be.Node)
	assert.Equal(t, []string{"one", "two"}, be.Workers)
}

// TestBuild_Cycle tests cycle detection and the reported path.
func TestBuild_Cycle(t *testing.T) {
	st := newStore(t, "x", "y")
	_, err := Build(st, []Worker{
		copier("a", "y", "x"),
		copier("b", "x", "y"),
	})
	require.Error(t, err)
	assert.True(t, IsCycleError(err))

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"a", "b", "a"}, be.Workers)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

// TestBuild_SelfLoop tests a worker reading its own output.
func TestBuild_SelfLoop(t *testing.T) {
	st := newStore(t, "x")
	_, err := Build(st, []Worker{copier("loop", "x", "x")})
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeCycle, be.Code)
	assert.Equal(t, []string{"loop", "loop"}, be.Workers)
}

// TestBuild_Feedback tests that feedback nodes break cycles.
func TestBuild_Feedback(t *testing.T) {
	st := newStore(t, "x", "y")
	workers := []Worker{
		copier("a", "y", "x"),
		copier("b", "x", "y"),
	}
	p, err := Build(st, workers, Feedback("y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Order())
	assert.True(t, p.IsFeedback("y"))
	assert.False(t, p.IsFeedback("x"))

	_, err = Build(st, workers, Feedback("nope"))
	assert.True(t, IsBuildError(err))
}

// TestBuild_UnknownAndUserNodes tests node validation.
func TestBuild_UnknownAndUserNodes(t *testing.T) {
	st := newStore(t, "a")
	require.NoError(t, node.Create(st, "desired", 0.0, node.WithAccess(node.UserProperty)))

	_, err := Build(st, []Worker{copier("w", "missing", "a")})
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeUnknownNode, be.Code)
	assert.Equal(t, "missing", be.Node)

	_, err = Build(st, []Worker{copier("w", "a", "desired")})
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeUserNodeWritten, be.Code)

	_, err = Build(st, []Worker{copier("w", "desired", "a"), copier("w", "a", "a")})
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeDuplicateWorker, be.Code)

	_, err = Build(st, []Worker{copier("", "desired", "a")})
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeEmptyWorkerName, be.Code)
}

// TestPlan_Affects tests downstream reachability.
func TestPlan_Affects(t *testing.T) {
	st := newStore(t, "a", "b", "c", "x", "y")
	p, err := Build(st, []Worker{
		copier("ab", "a", "b"),
		copier("bc", "b", "c"),
		copier("xy", "x", "y"),
	})
	require.NoError(t, err)

	assert.True(t, p.Affects([]string{"a"}, "c"))
	assert.True(t, p.Affects([]string{"c"}, "c"))
	assert.False(t, p.Affects([]string{"x"}, "c"))
	assert.False(t, p.Affects(nil, "c"))
	assert.True(t, p.Affects([]string{"x", "b"}, "c"))
}

// TestScope_Access tests enforcement of declared sets.
func TestScope_Access(t *testing.T) {
	st := newStore(t, "in", "out", "other")
	w := copier("w", "in", "out")

	s := NewScope(st, w)
	Out(s, "out", 1.0)
	assert.Equal(t, []string{"out"}, s.Changed())
	assert.NoError(t, s.Err())

	Out(s, "other", 2.0)
	var ae *AccessError
	require.ErrorAs(t, s.Err(), &ae)
	assert.Equal(t, "write", ae.Op)
	assert.Equal(t, "other", ae.Node)

	s = NewScope(st, w)
	_ = In[float64](s, "other")
	require.ErrorAs(t, s.Err(), &ae)
	assert.Equal(t, "read", ae.Op)

	s = NewScope(st, w)
	_ = In[string](s, "in")
	assert.True(t, node.IsTypeMismatch(s.Err()))
}

// TestPlan_Dot tests the Graphviz rendering against a golden file.
func TestPlan_Dot(t *testing.T) {
	st := newStore(t, "in", "mid", "out")
	p, err := Build(st, []Worker{
		copier("first", "in", "mid"),
		copier("second", "mid", "out"),
		copier("tail", "out", "in"),
	}, Feedback("in"))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "dot_feedback", []byte(p.Dot("demo")))
}
