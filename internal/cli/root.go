package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/twinrx/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Config    string
	LogFormat string // "text" | "json", overrides the profile
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the twinrx CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "twinrx",
		Short: "TwinRX front-end settings resolver",
		Long: `Resolve TwinRX dual-channel receiver settings against a simulated board.

Property writes go through the same dependency graph the driver uses, so
every command prints the values the hardware would actually be given.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.LogFormat != "" && !isValidFormat(opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "board profile file (yaml, toml or json)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format on stderr (json|text)")

	cmd.AddCommand(NewTuneCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewPropsCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewRevisionsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// profile loads the board profile and applies the logging flags to it.
func (o *RootOptions) profile() (config.Profile, error) {
	p, err := config.Load(o.Config)
	if err != nil {
		return config.Profile{}, WrapExitError(ExitCommandError, "failed to load profile", err)
	}
	if o.Verbose {
		p.Log.Level = "debug"
	}
	if o.LogFormat != "" {
		p.Log.Format = o.LogFormat
	}
	return p, nil
}

// logger returns the profile's logger on w. Without --verbose only warnings
// and errors reach stderr, so command output stays readable.
func (o *RootOptions) logger(p config.Profile, w io.Writer) *slog.Logger {
	l := p.Log
	if !o.Verbose && (l.Level == "info" || l.Level == "") {
		l.Level = "warn"
	}
	return l.Logger(w)
}
