package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestRootCommand tests the root command metadata.
func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "twinrx", cmd.Use)
	assert.Contains(t, cmd.Short, "TwinRX")
}

// TestRootCommand_Subcommands tests that every subcommand is registered.
func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"tune", "apply", "graph", "props", "scenario", "trace", "revisions"}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

// TestRootCommand_GlobalFlags tests the persistent flags and defaults.
func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("log-format"))
}

// TestRootCommand_CommandFlags tests command-specific flags.
func TestRootCommand_CommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := []struct {
		command string
		flags   []string
	}{
		{"tune", []string{"db", "channel", "set", "freq", "if-freq", "gain", "gain-profile", "antenna", "lo-source", "export", "bandwidth", "metrics"}},
		{"apply", []string{"db", "dry-run", "metrics"}},
		{"graph", []string{"audit"}},
		{"props", []string{"target"}},
		{"scenario", []string{"update", "filter"}},
		{"trace", []string{"db", "changes", "session", "board", "from", "to", "node", "forced", "limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, f := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(f), "flag --%s", f)
			}
		})
	}
}

// TestIsValidFormat tests format validation.
func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

// TestRootCommand_InvalidFormat tests that bad formats are rejected before
// any command runs.
func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "invalid", "revisions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")

	_, err = execute(t, "--log-format", "xml", "revisions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

// TestRootCommand_BadConfig tests that an invalid profile exits with a
// command error.
func TestRootCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/profile.yaml", "graph")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load profile")
}
