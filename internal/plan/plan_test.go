package plan

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/hw"
	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

func newBoard(t *testing.T) *twinrx.Board {
	t.Helper()
	rev, err := twinrx.LookupRevision(0x95)
	require.NoError(t, err)
	b, err := twinrx.Build(rev.ID, hw.NewSim(rev, hw.AlwaysLocked()),
		twinrx.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return b
}

func paths(p *Plan) []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Target + ":" + s.Path
	}
	return out
}

// TestLoad_Order tests that steps follow source order across blocks.
func TestLoad_Order(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "retune.hcl"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"board:cal_mode/value",
		"0:freq/value",
		"0:if_freq/value",
		"0:gains/all/value",
		"1:antenna/value",
		"1:los/LO1/charge_pump/value",
	}, paths(p))
	assert.Equal(t, int64(150000000), p.Steps[2].Value)
	assert.Equal(t, int64(30), p.Steps[3].Value)
	assert.Equal(t, "RX1", p.Steps[4].Value)
}

// TestParse_Functions tests unit variables and functions.
func TestParse_Functions(t *testing.T) {
	p, err := Parse([]byte(`
channel "0" {
  freq    = max(1 * GHz, 500 * MHz)
  if_freq = -abs(140 * MHz)
  enabled = false
}
`), "functions.hcl")
	require.NoError(t, err)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, int64(1000000000), p.Steps[0].Value)
	assert.Equal(t, int64(-140000000), p.Steps[1].Value)
	assert.Equal(t, false, p.Steps[2].Value)
}

// TestParse_Errors tests rejected plans.
func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `channel "0" {`},
		{"unknown setting", "channel \"0\" {\n  frequency = 1\n}\n"},
		{"missing label", "channel {\n  freq = 1\n}\n"},
		{"unknown variable", "channel \"0\" {\n  freq = 1 * THz\n}\n"},
		{"list value", "channel \"0\" {\n  freq = [1, 2]\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), tt.name+".hcl")
			assert.Error(t, err)
		})
	}
}

// TestApply_Retune tests applying a plan to a board.
func TestApply_Retune(t *testing.T) {
	b := newBoard(t)
	p, err := Load(filepath.Join("testdata", "retune.hcl"))
	require.NoError(t, err)

	results, err := p.Apply(b)
	require.NoError(t, err)
	require.Len(t, results, len(p.Steps))

	assert.Equal(t, twinrx.CalDisabled, results[0].Stored)
	assert.Equal(t, 2.4e9, results[1].Stored)
	assert.Equal(t, 150e6, results[2].Stored)
	assert.Equal(t, 30.0, results[3].Stored)
	assert.Equal(t, twinrx.AntRX1, results[4].Stored)
	assert.InDelta(t, 1.2e-6, results[5].Stored, 1e-12)

	rx0, _ := b.Frontend(twinrx.Ch0)
	rx1, _ := b.Frontend(twinrx.Ch1)
	ant0, err := prop.Get[twinrx.Antenna](rx0.Props(), "antenna/value")
	require.NoError(t, err)
	assert.Equal(t, twinrx.AntRX2, ant0)

	cp, err := prop.Get[float64](rx1.Props(), "los/LO1/charge_pump/value")
	require.NoError(t, err)
	assert.InDelta(t, 1.2e-6, cp, 1e-12)
}

// TestApply_Errors tests steps that cannot be applied.
func TestApply_Errors(t *testing.T) {
	b := newBoard(t)

	p, err := Parse([]byte("channel \"7\" {\n  freq = 1 * GHz\n}\n"), "bad-channel.hcl")
	require.NoError(t, err)
	_, err = p.Apply(b)
	assert.ErrorContains(t, err, `unknown channel "7"`)

	p, err = Parse([]byte("channel \"0\" {\n  prop \"no/such/path\" {\n    value = 1\n  }\n}\n"), "bad-path.hcl")
	require.NoError(t, err)
	_, err = p.Apply(b)
	assert.True(t, errors.Is(err, prop.ErrUnknownProperty), "got %v", err)

	p, err = Parse([]byte("channel \"0\" {\n  antenna = 3\n}\n"), "bad-type.hcl")
	require.NoError(t, err)
	results, err := p.Apply(b)
	assert.Error(t, err)
	assert.Empty(t, results)
}
