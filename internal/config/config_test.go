package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/hw"
	"github.com/roach88/twinrx/internal/twinrx"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestDefault_Valid tests that the built-in profile passes validation.
func TestDefault_Valid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, uint16(0x95), p.Revision)
	assert.Equal(t, 200e6, p.ADCRate)
}

// TestLoad_NoFile tests loading defaults without a file.
func TestLoad_NoFile(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

// TestLoad_File tests that file values override defaults.
func TestLoad_File(t *testing.T) {
	path := writeProfile(t, `
board: bench-a
revision: 147
adc_rate: 250000000
journal: /tmp/twinrx.db
log:
  level: debug
  format: json
`)
	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bench-a", p.Board)
	assert.Equal(t, uint16(0x93), p.Revision)
	assert.Equal(t, 250e6, p.ADCRate)
	assert.Equal(t, "/tmp/twinrx.db", p.Journal)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, p.Log)
	assert.Equal(t, Default().SynthStep, p.SynthStep)
}

// TestLoad_Env tests environment overrides.
func TestLoad_Env(t *testing.T) {
	t.Setenv("TWINRX_ITERATION_BUDGET", "8")
	t.Setenv("TWINRX_LOG_FORMAT", "json")

	p, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, p.IterationBudget)
	assert.Equal(t, "json", p.Log.Format)
}

// TestLoad_Invalid tests schema and registry rejections.
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown revision", "revision: 7\n"},
		{"negative adc rate", "adc_rate: -1\n"},
		{"zero budget", "iteration_budget: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad board name", "board: Bench A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeProfile(t, tt.body))
			require.Error(t, err)
			assert.True(t, IsProfileError(err), "got %v", err)
		})
	}
}

// TestLoad_UnknownKey tests that misspelled keys are rejected.
func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeProfile(t, "adc_rat: 100000000\n"))
	require.Error(t, err)
	assert.True(t, IsProfileError(err))
}

// TestLoad_MissingFile tests a missing profile path.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, IsProfileError(err))
}

// TestProfile_BoardOptions tests that a profile builds a board.
func TestProfile_BoardOptions(t *testing.T) {
	p := Default()
	p.SynthStep = 1e6

	rev, err := twinrx.LookupRevision(p.Revision)
	require.NoError(t, err)
	var logs bytes.Buffer
	opts := append(p.BoardOptions(), twinrx.WithLogger(p.Log.Logger(&logs)))
	b, err := twinrx.Build(p.Revision, hw.NewSim(rev), opts...)
	require.NoError(t, err)

	fe, ok := b.Frontend(twinrx.Ch0)
	require.True(t, ok)
	lo1, err := fe.Props().GetValue("los/LO1/freq/value")
	require.NoError(t, err)
	assert.Equal(t, 3.345e9, lo1)
	assert.Contains(t, logs.String(), "graph built")
}

// TestLog_Logger tests handler selection.
func TestLog_Logger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: "json"}.Logger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "warn", Format: "json"}.Logger(&buf).Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	Log{}.Logger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
