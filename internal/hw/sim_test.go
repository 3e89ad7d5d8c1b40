package hw

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

func revision(t *testing.T, id uint16) twinrx.Revision {
	t.Helper()
	rev, err := twinrx.LookupRevision(id)
	require.NoError(t, err)
	return rev
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// TestSim_LocksAfterApply tests that lock follows applied settings.
func TestSim_LocksAfterApply(t *testing.T) {
	sim := NewSim(revision(t, 0x93), WithLogger(quiet()))
	locked, err := sim.LOLocked(twinrx.Ch0, twinrx.LO1)
	require.NoError(t, err)
	assert.False(t, locked)

	b, err := twinrx.Build(0x93, sim, twinrx.WithLogger(quiet()))
	require.NoError(t, err)
	assert.Equal(t, 1, sim.Applied())

	fe, ok := b.Frontend(twinrx.Ch0)
	require.True(t, ok)
	locked, err = prop.Get[bool](fe.Props(), "sensors/lo_locked")
	require.NoError(t, err)
	assert.True(t, locked)

	_, err = prop.Set(fe.Props(), "los/all/source/value", twinrx.SourceDisabled)
	require.NoError(t, err)
	locked, err = prop.Get[bool](fe.Props(), "sensors/lo_locked")
	require.NoError(t, err)
	assert.False(t, locked)

	last, ok := sim.Last()
	require.True(t, ok)
	assert.Equal(t, twinrx.SourceDisabled, last.Channels[twinrx.Ch0].LOSource[twinrx.LO1])
}

// TestSim_AlwaysLocked tests the always-locked stub.
func TestSim_AlwaysLocked(t *testing.T) {
	sim := NewSim(revision(t, 0x95), AlwaysLocked())
	locked, err := sim.LOLocked(twinrx.Ch1, twinrx.LO2)
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, 0.3e-6, sim.ChargePumpRange(twinrx.LO1).Start())
}

// TestSim_Close tests that a closed control fails the pass observer.
func TestSim_Close(t *testing.T) {
	sim := NewSim(revision(t, 0x91), WithLogger(quiet()))
	b, err := twinrx.Build(0x91, sim, twinrx.WithLogger(quiet()))
	require.NoError(t, err)
	require.NoError(t, sim.Close())

	fe, _ := b.Frontend(twinrx.Ch0)
	_, err = prop.Set(fe.Props(), "gains/all/value", 10.0)
	require.Error(t, err)
	assert.True(t, engine.IsObserverFailedError(err))
	assert.ErrorIs(t, err, ErrClosed)

	_, ok := sim.Last()
	assert.True(t, ok)
	assert.ErrorIs(t, sim.Apply(context.Background(), twinrx.Settings{}), ErrClosed)
}
