package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/hw"
	"github.com/roach88/twinrx/internal/node"
	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func testPass(t *testing.T, session string, seq int64, forced bool) *engine.Pass {
	t.Helper()
	st := node.New()
	require.NoError(t, node.Create(st, "freq", 2.4e9))
	require.NoError(t, node.Create(st, "path", "highband"))
	require.NoError(t, node.Create(st, "gain", int64(12)))
	return &engine.Pass{
		Session:    session,
		Seq:        seq,
		Forced:     forced,
		Iterations: 2,
		Workers:    []string{"freq_path", "synth/LO1", "freq_path"},
		Changed:    []string{"path", "freq"},
		Snapshot:   st.Snapshot(),
	}
}

// TestOpen_CreatesDatabase tests that Open creates the file and applies pragmas.
func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	mode, err := j.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	fk, err := j.pragma("foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, "1", fk)

	version, err := j.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

// TestOpen_Idempotent tests reopening an existing journal.
func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, j.Close())
	}
}

// TestWritePass_RoundTrip tests that a pass and its changes read back.
func TestWritePass_RoundTrip(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.WriteSession(ctx, Session{ID: "s1", Board: "twinrx", Revision: "C"}))
	p := testPass(t, "s1", 4, true)
	require.NoError(t, j.WritePass(ctx, p))

	passes, err := j.Passes(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, passes, 1)

	hash, err := p.Snapshot.Hash()
	require.NoError(t, err)
	assert.Equal(t, PassRecord{
		Session:      "s1",
		Seq:          4,
		Forced:       true,
		Iterations:   2,
		Workers:      []string{"freq_path", "synth/LO1", "freq_path"},
		SnapshotHash: hash,
		Changed:      2,
	}, passes[0])

	changes, err := j.Changes(ctx, "s1", 4)
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{Node: "freq", Value: "2400000000"},
		{Node: "path", Value: `"highband"`},
	}, changes)
}

// TestWritePass_Idempotent tests that re-writing a pass is a no-op.
func TestWritePass_Idempotent(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.WriteSession(ctx, Session{ID: "s1", Board: "twinrx", Revision: "C"}))
	require.NoError(t, j.WriteSession(ctx, Session{ID: "s1", Board: "twinrx", Revision: "C"}))
	p := testPass(t, "s1", 1, false)
	require.NoError(t, j.WritePass(ctx, p))
	require.NoError(t, j.WritePass(ctx, p))

	passes, err := j.Passes(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, passes, 1)

	changes, err := j.Changes(ctx, "s1", 1)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

// TestWritePass_UnknownSession tests the session foreign key.
func TestWritePass_UnknownSession(t *testing.T) {
	j := openTestJournal(t)
	err := j.WritePass(context.Background(), testPass(t, "missing", 1, false))
	assert.Error(t, err)
}

// TestPasses_Filters tests filter selection and ordering.
func TestPasses_Filters(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.WriteSession(ctx, Session{ID: "a", Board: "twinrx", Revision: "C"}))
	require.NoError(t, j.WriteSession(ctx, Session{ID: "b", Board: "bench", Revision: "A"}))
	require.NoError(t, j.WritePass(ctx, testPass(t, "b", 3, false)))
	require.NoError(t, j.WritePass(ctx, testPass(t, "a", 1, true)))
	require.NoError(t, j.WritePass(ctx, testPass(t, "a", 3, false)))
	require.NoError(t, j.WritePass(ctx, testPass(t, "a", 2, false)))

	keys := func(f Filter) []string {
		t.Helper()
		passes, err := j.Passes(ctx, f)
		require.NoError(t, err)
		out := make([]string, 0, len(passes))
		for _, p := range passes {
			out = append(out, fmt.Sprintf("%s:%d", p.Session, p.Seq))
		}
		return out
	}

	assert.Equal(t, []string{"a:1", "a:2", "a:3", "b:3"}, keys(Filter{}))
	assert.Equal(t, []string{"a:1", "a:2", "a:3"}, keys(Filter{Session: "a"}))
	assert.Equal(t, []string{"b:3"}, keys(Filter{Board: "bench"}))
	assert.Equal(t, []string{"a:2", "a:3", "b:3"}, keys(Filter{FromSeq: 2}))
	assert.Equal(t, []string{"a:1", "a:2"}, keys(Filter{ToSeq: 2}))
	assert.Equal(t, []string{"a:1"}, keys(Filter{ForcedOnly: true}))
	assert.Equal(t, []string{"a:1", "a:2"}, keys(Filter{Limit: 2}))
	assert.Equal(t, []string{"a:1", "a:2", "a:3", "b:3"}, keys(Filter{Node: "freq"}))
	assert.Empty(t, keys(Filter{Node: "gain"}))
}

// TestFilter_Compile tests parameter binding and the mandatory ordering.
func TestFilter_Compile(t *testing.T) {
	query, params, err := Filter{Session: "s1", Node: "0/freq/coerced", Limit: 5}.compile()
	require.NoError(t, err)
	assert.Contains(t, query, "ORDER BY p.seq ASC, p.session_id COLLATE BINARY ASC")
	assert.NotContains(t, query, "s1")
	assert.NotContains(t, query, "0/freq/coerced")
	assert.Equal(t, []any{"s1", "0/freq/coerced", 5}, params)

	query, params, err = Filter{}.compile()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY")
	assert.Empty(t, params)
}

// TestFilter_Invalid tests rejected filters.
func TestFilter_Invalid(t *testing.T) {
	for name, f := range map[string]Filter{
		"negative from":  {FromSeq: -1},
		"empty range":    {FromSeq: 5, ToSeq: 2},
		"negative limit": {Limit: -3},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.compile()
			assert.Error(t, err)
		})
	}
}

// TestRecorder_Board tests journaling a live board.
func TestRecorder_Board(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	rec := NewRecorder(j, "twinrx", "C")

	rev, err := twinrx.LookupRevision(0x95)
	require.NoError(t, err)
	b, err := twinrx.Build(rev.ID, hw.NewSim(rev),
		twinrx.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		twinrx.WithEngineOptions(
			engine.WithSessionGenerator(engine.NewFixedGenerator("session-1")),
			engine.WithObserver(rec),
		),
	)
	require.NoError(t, err)

	fe, ok := b.Frontend(twinrx.Ch0)
	require.True(t, ok)
	_, err = prop.Set(fe.Props(), "freq/value", 5.5e9)
	require.NoError(t, err)

	sessions, err := j.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Session{{ID: "session-1", Board: "twinrx", Revision: "C"}}, sessions)

	passes, err := j.Passes(ctx, Filter{Session: "session-1"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(passes), 2)
	assert.True(t, passes[0].Forced)

	hits, err := j.Passes(ctx, Filter{Node: twinrx.NodeName(twinrx.Ch0, "ch/signal_path")})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	last := hits[len(hits)-1]

	changes, err := j.Changes(ctx, last.Session, last.Seq)
	require.NoError(t, err)
	assert.Contains(t, changes, Change{Node: "0/ch/signal_path", Value: `"highband"`})

	hash, err := b.Container().Snapshot().Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, passes[len(passes)-1].SnapshotHash)
}
