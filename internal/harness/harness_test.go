package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// TestRunWithGolden_Scenarios tests the checked-in scenarios against their
// golden snapshots.
func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"highband_retune", "lo_export_conflict"} {
		t.Run(name, func(t *testing.T) {
			s := loadTestScenario(t, name)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// TestRun_GainPartition tests gain scenarios, including steps that expect
// an error.
func TestRun_GainPartition(t *testing.T) {
	s := loadTestScenario(t, "gain_partition")

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.EqualValues(t, 6, result.Settings["0/input_atten"])
}

// TestRun_Trace tests that passes are tagged with the step that caused them.
func TestRun_Trace(t *testing.T) {
	s := loadTestScenario(t, "highband_retune")

	result, err := Run(s)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)

	first := result.Trace[0]
	assert.Equal(t, int64(0), first.Step)
	assert.True(t, first.Forced)
	assert.Positive(t, first.Seq)

	second := result.Trace[1]
	assert.Equal(t, int64(1), second.Step)
	assert.False(t, second.Forced)
	assert.Greater(t, second.Seq, first.Seq)
	assert.Contains(t, second.Changed, "0/ch/signal_path")
}

// TestRun_FailedExpectations tests that mismatches are reported in the
// result rather than as an error.
func TestRun_FailedExpectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: "expectations that do not hold"
flow:
  - target: "0"
    set: freq/value
    value: 2.4e9
    expect: 1e9
  - target: "0"
    get: freq/value
    error: boom
assertions:
  - type: settings
    key: 0/signal_path
    expect: lowband
  - type: worker_ran
    worker: 0/no_such_worker
  - type: pass_count
    step: 2
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected 1e+09")
	assert.Contains(t, result.Errors[1], `expected error containing "boom"`)
	assert.Contains(t, result.Errors[2], "assertion failed: settings")
	assert.Contains(t, result.Errors[3], "0/no_such_worker")
	assert.Contains(t, result.Errors[4], "0 passes")
}

// TestRun_UnknownTarget tests that a flow naming an unknown tree aborts.
func TestRun_UnknownTarget(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_target
description: "no such channel"
flow:
  - target: "7"
    get: freq/value
snapshot:
  - target: "0"
    path: freq/value
`))
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "7"`)
}

// TestParseScenario_Validation tests rejection of malformed scenarios.
func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: x\nflow: [{target: \"0\", get: freq/value}]\nsnapshot: [{target: \"0\", path: freq/value}]\n",
			want: "name is required",
		},
		{
			name: "unknown revision",
			yaml: "name: x\ndescription: x\nrevision: 0x42\nflow: [{target: \"0\", get: freq/value}]\nsnapshot: [{target: \"0\", path: freq/value}]\n",
			want: "revision",
		},
		{
			name: "empty flow",
			yaml: "name: x\ndescription: x\nsnapshot: [{target: \"0\", path: freq/value}]\n",
			want: "flow list is required",
		},
		{
			name: "set and get",
			yaml: "name: x\ndescription: x\nflow: [{target: \"0\", set: freq/value, get: freq/value, value: 1}]\nsnapshot: [{target: \"0\", path: freq/value}]\n",
			want: "set and get are exclusive",
		},
		{
			name: "set without value",
			yaml: "name: x\ndescription: x\nflow: [{target: \"0\", set: freq/value}]\nsnapshot: [{target: \"0\", path: freq/value}]\n",
			want: "value is required for set",
		},
		{
			name: "nothing checked",
			yaml: "name: x\ndescription: x\nflow: [{target: \"0\", get: freq/value}]\n",
			want: "assertions or snapshot required",
		},
		{
			name: "unknown field",
			yaml: "name: x\ndescription: x\nflwo: []\n",
			want: "field flwo not found",
		},
		{
			name: "settings without key",
			yaml: "name: x\ndescription: x\nflow: [{target: \"0\", get: freq/value}]\nassertions: [{type: settings, expect: 1}]\n",
			want: "key is required for settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestParseScenario_DefaultRevision tests the revision default.
func TestParseScenario_DefaultRevision(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: x\nflow: [{target: \"0\", get: freq/value}]\nsnapshot: [{target: \"0\", path: freq/value}]\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRevision, s.Revision)
}

// TestLoadDir_Sorted tests that LoadDir returns scenarios in file order.
func TestLoadDir_Sorted(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"gain_partition", "highband_retune", "lo_export_conflict"}, names)
}

// TestSnapshotJSON_Canonical tests the golden encoding.
func TestSnapshotJSON_Canonical(t *testing.T) {
	r := NewResult()
	r.Snapshot["b:x"] = 2.5e9
	r.Snapshot["a:y"] = "highband"

	data, err := SnapshotJSON("demo", r)
	require.NoError(t, err)
	assert.Equal(t, `{"properties":{"a:y":"highband","b:x":2500000000},"scenario":"demo"}`, string(data))
}
