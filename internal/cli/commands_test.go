package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/journal"
)

const (
	retunePlan   = "../plan/testdata/retune.hcl"
	scenarioDir  = "../harness/testdata/scenarios"
	highbandYAML = "../harness/testdata/scenarios/highband_retune.yaml"
)

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func propValue(props []PropValue, target, path string) any {
	for _, p := range props {
		if p.Target == target && p.Path == path {
			return p.Value
		}
	}
	return nil
}

// TestTune_HighBand tests that a retune reports the resolved LO plan.
func TestTune_HighBand(t *testing.T) {
	out, err := execute(t, "tune", "--freq", "2.4e9", "--format", "json")
	require.NoError(t, err)

	res := decode[TuneResult](t, out)
	require.Len(t, res.Writes, 1)
	assert.Equal(t, "freq/value", res.Writes[0].Path)
	assert.Equal(t, "2.4e9", res.Writes[0].Requested)
	assert.Equal(t, 2.4e9, res.Writes[0].Stored)

	assert.Equal(t, 2.4e9, propValue(res.Properties, "0", "freq/value"))
	assert.Equal(t, 3.65e9, propValue(res.Properties, "0", "los/LO1/freq/value"))
	assert.Equal(t, 1.1e9, propValue(res.Properties, "0", "los/LO2/freq/value"))
	assert.Equal(t, "disabled", propValue(res.Properties, "board", "los/LO1/export_source"))
}

// TestTune_Text tests the text rendering.
func TestTune_Text(t *testing.T) {
	out, err := execute(t, "tune", "--channel", "1", "--freq", "1e9")
	require.NoError(t, err)
	assert.Contains(t, out, "set 1:freq/value")
	assert.Contains(t, out, "1:los/LO1/freq/value")
	assert.Contains(t, out, "3345000000")
	assert.Contains(t, out, "board:cal_mode/value")
}

// TestTune_SetFlags tests --set with and without a target.
func TestTune_SetFlags(t *testing.T) {
	out, err := execute(t, "tune",
		"--set", "board:cal_mode/value=disabled",
		"--set", "gains/all/value=70",
		"--format", "json")
	require.NoError(t, err)

	res := decode[TuneResult](t, out)
	require.Len(t, res.Writes, 2)
	assert.Equal(t, "board", res.Writes[0].Target)
	assert.Equal(t, "0", res.Writes[1].Target)
	assert.Equal(t, 70.0, propValue(res.Properties, "0", "gains/all/value"))
}

// TestTune_Errors tests rejected writes and malformed flags.
func TestTune_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"read-only", []string{"--set", "freq/range=1"}, ExitFailure, "write rejected"},
		{"unknown property", []string{"--set", "no/such=1"}, ExitFailure, "unknown property"},
		{"malformed set", []string{"--set", "freq/value"}, ExitCommandError, "want [target:]path=value"},
		{"unknown channel", []string{"--channel", "7"}, ExitCommandError, `unknown target "7"`},
		{"bad number", []string{"--freq", "fast"}, ExitFailure, "type mismatch"},
		{"nan gain", []string{"--gain", "NaN"}, ExitFailure, "NON_FINITE"},
		{"infinite freq", []string{"--freq", "+Inf"}, ExitFailure, "NON_FINITE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"tune"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestTune_Metrics tests the resolver metrics dump.
func TestTune_Metrics(t *testing.T) {
	out, err := execute(t, "tune", "--gain", "70", "--metrics", "--format", "json")
	require.NoError(t, err)

	res := decode[TuneResult](t, out)
	assert.Contains(t, res.Metrics, `twinrx_resolver_passes_total{board="twinrx",kind="forced"} 1`)
	assert.Contains(t, res.Metrics, `twinrx_resolver_passes_total{board="twinrx",kind="incremental"} 1`)
	assert.Contains(t, res.Metrics, `twinrx_resolver_worker_runs_total{board="twinrx",worker="0/chan_gain"}`)
	assert.Contains(t, res.Metrics, "# TYPE twinrx_resolver_pass_iterations histogram")

	out, err = execute(t, "tune", "--gain", "70", "--format", "json")
	require.NoError(t, err)
	assert.Empty(t, decode[TuneResult](t, out).Metrics)

	out, err = execute(t, "tune", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "# TYPE twinrx_resolver_passes_total counter")
}

// TestParseSet tests the --set syntax.
func TestParseSet(t *testing.T) {
	w, err := parseSet("freq/value=1e9", "1")
	require.NoError(t, err)
	assert.Equal(t, write{target: "1", path: "freq/value", value: "1e9"}, w)

	w, err = parseSet("board:cal_mode/value=ch0", "1")
	require.NoError(t, err)
	assert.Equal(t, write{target: "board", path: "cal_mode/value", value: "ch0"}, w)

	w, err = parseSet("antenna/value=", "0")
	require.NoError(t, err)
	assert.Equal(t, "", w.value)

	for _, bad := range []string{"", "=1", ":freq=1", "board:=1", "novalue"} {
		_, err := parseSet(bad, "0")
		assert.Error(t, err, bad)
	}
}

// TestApply_Plan tests applying the retune plan.
func TestApply_Plan(t *testing.T) {
	out, err := execute(t, "apply", retunePlan, "--format", "json")
	require.NoError(t, err)

	res := decode[ApplyResult](t, out)
	assert.Equal(t, retunePlan, res.Plan)
	assert.Equal(t, 6, res.Steps)
	require.Len(t, res.Results, 6)
	assert.Equal(t, "disabled", res.Results[0].Stored)
	assert.Equal(t, 2.4e9, res.Results[1].Stored)
	assert.Empty(t, res.Session)
}

// TestApply_Metrics tests the resolver metrics dump after a plan.
func TestApply_Metrics(t *testing.T) {
	out, err := execute(t, "apply", retunePlan, "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 6 step(s)")
	assert.Contains(t, out, `twinrx_resolver_passes_total{board="twinrx",kind="forced"} 1`)
	assert.Contains(t, out, "twinrx_resolver_worker_runs_total")
}

// TestApply_DryRun tests that a dry run lists steps without storing.
func TestApply_DryRun(t *testing.T) {
	out, err := execute(t, "apply", retunePlan, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "0:freq/value")
	assert.Contains(t, out, "2400000000")
	assert.Contains(t, out, "Applied 6 step(s)")
}

// TestApply_Errors tests missing and invalid plans.
func TestApply_Errors(t *testing.T) {
	_, err := execute(t, "apply", "/nonexistent/plan.hcl")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "plan not found")

	bad := filepath.Join(t.TempDir(), "bad.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`channel "0" { freq = }`), 0644))
	_, err = execute(t, "apply", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	rejected := filepath.Join(t.TempDir(), "rejected.hcl")
	require.NoError(t, os.WriteFile(rejected, []byte(`channel "7" { freq = 1e9 }`), 0644))
	_, err = execute(t, "apply", rejected)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

// TestApply_Journal tests that journaled passes can be listed with trace.
func TestApply_Journal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "apply", retunePlan, "--db", db, "--format", "json")
	require.NoError(t, err)
	applied := decode[ApplyResult](t, out)
	require.NotEmpty(t, applied.Session)

	out, err = execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)
	res := decode[TraceResult](t, out)

	require.Len(t, res.Sessions, 1)
	assert.Equal(t, applied.Session, res.Sessions[0].ID)
	assert.Equal(t, "twinrx", res.Sessions[0].Board)
	assert.Equal(t, "C", res.Sessions[0].Revision)

	require.GreaterOrEqual(t, len(res.Passes), 2)
	assert.True(t, res.Passes[0].Forced)
	assert.Equal(t, len(res.Passes), res.Stats.Passes)
	assert.Equal(t, 1, res.Stats.Forced)
	for i := 1; i < len(res.Passes); i++ {
		assert.Greater(t, res.Passes[i].Seq, res.Passes[i-1].Seq)
	}
}

// TestTrace_Filters tests node filtering and change values.
func TestTrace_Filters(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	_, err := execute(t, "tune", "--freq", "2.4e9", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "trace", "--db", db, "--node", "0/ch/signal_path", "--changes", "--format", "json")
	require.NoError(t, err)
	res := decode[TraceResult](t, out)
	require.NotEmpty(t, res.Passes)

	last := res.Passes[len(res.Passes)-1]
	assert.False(t, last.Forced)
	assert.Contains(t, last.Values, journal.Change{Node: "0/ch/signal_path", Value: `"highband"`})

	out, err = execute(t, "trace", "--db", db, "--forced")
	require.NoError(t, err)
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "1 pass(es), 1 forced")
}

// TestTrace_Errors tests missing journals and bad filters.
func TestTrace_Errors(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = execute(t, "trace", "--db", "/nonexistent/path/journal.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open journal")

	db := filepath.Join(t.TempDir(), "journal.db")
	_, err = execute(t, "tune", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "trace", "--db", db, "--from", "9", "--to", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// TestGraph_Dot tests the DOT output.
func TestGraph_Dot(t *testing.T) {
	out, err := execute(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "twinrx" {`)
	assert.Contains(t, out, `"w:lo_config" [shape=box`)
	assert.Contains(t, out, `"w:0/freq_path" -> "n:0/ch/signal_path"`)

	out, err = execute(t, "graph", "--audit")
	require.NoError(t, err)
	assert.Contains(t, out, "board twinrx (session ")
	assert.Contains(t, out, "0/ch/signal_path")
	assert.Contains(t, out, "lowband")

	out, err = execute(t, "graph", "--audit", "--format", "json")
	require.NoError(t, err)
	a := decode[engine.Audit](t, out)
	assert.Equal(t, "twinrx", a.Board)
	assert.NotEmpty(t, a.Workers)
}

// TestProps_List tests the property listing.
func TestProps_List(t *testing.T) {
	out, err := execute(t, "props", "--format", "json")
	require.NoError(t, err)
	res := decode[PropsResult](t, out)
	assert.Equal(t, "0", res.Target)

	byPath := make(map[string]PropEntry, len(res.Properties))
	for _, p := range res.Properties {
		byPath[p.Path] = p
	}
	freq := byPath["freq/value"]
	assert.Equal(t, "dual", freq.Kind)
	assert.Equal(t, "read_write", freq.Policy)
	assert.True(t, freq.Writable)
	assert.Equal(t, 1e9, freq.Value)

	assert.False(t, byPath["freq/range"].Writable)
	assert.Equal(t, "range", byPath["freq/range"].Kind)
	assert.Equal(t, []any{"RX1", "RX2"}, byPath["antenna/options"].Value)
	assert.Equal(t, true, byPath["sensors/lo_locked"].Value)

	out, err = execute(t, "props", "--target", "board")
	require.NoError(t, err)
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "diag/lo_export_conflict")
	assert.Contains(t, out, "cal_mode/options")
}

// TestRevisions_List tests the revision listing.
func TestRevisions_List(t *testing.T) {
	out, err := execute(t, "revisions", "--format", "json")
	require.NoError(t, err)
	revs := decode[[]RevisionEntry](t, out)
	require.Len(t, revs, 3)
	assert.Equal(t, "0x91", revs[0].ID)
	assert.Equal(t, "C", revs[2].Name)
	assert.Equal(t, 0.9e-6, revs[2].Defaults["LO1"])

	out, err = execute(t, "revisions")
	require.NoError(t, err)
	assert.Contains(t, out, "0x95")
}

// TestScenario_Dir tests running every scenario in a directory.
func TestScenario_Dir(t *testing.T) {
	out, err := execute(t, "scenario", scenarioDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ highband_retune")
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")

	out, err = execute(t, "scenario", scenarioDir, "--filter", "lo_*", "--format", "json")
	require.NoError(t, err)
	res := decode[ScenarioSummary](t, out)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "lo_export_conflict", res.Scenarios[0].Name)
	assert.Positive(t, res.Scenarios[0].Passes)
}

// TestScenario_Golden tests golden creation and mismatch detection.
func TestScenario_Golden(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(highbandYAML)
	require.NoError(t, err)
	file := filepath.Join(dir, "highband_retune.yaml")
	require.NoError(t, os.WriteFile(file, src, 0644))

	_, err = execute(t, "scenario", file, "--update")
	require.NoError(t, err)
	golden := filepath.Join(dir, "golden", "highband_retune.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"0:los/LO1/freq/value":3650000000`)

	_, err = execute(t, "scenario", file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte(`{"properties":{},"scenario":"highband_retune"}`), 0644))
	out, err := execute(t, "scenario", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden file")
}

// TestScenario_Failures tests failing and missing scenarios.
func TestScenario_Failures(t *testing.T) {
	_, err := execute(t, "scenario", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	file := filepath.Join(t.TempDir(), "wrong.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: wrong
description: "low band expected after a high band retune"
flow:
  - target: "0"
    set: freq/value
    value: 2.4e9
assertions:
  - type: settings
    key: 0/signal_path
    expect: lowband
`), 0644))

	out, err := execute(t, "scenario", file, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
}
