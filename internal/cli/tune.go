package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/twinrx/internal/plan"
)

// TuneOptions holds flags for the tune command.
type TuneOptions struct {
	*RootOptions
	Database string
	Channel  string
	Sets     []string // target:path=value or path=value
	Metrics  bool
}

// tuneFlags maps tune flags to channel property paths, in write order.
var tuneFlags = []struct {
	flag, path, usage string
}{
	{"antenna", "antenna/value", "antenna (RX1|RX2)"},
	{"lo-source", "los/all/source/value", "LO source (internal|external|companion|disabled|reimport)"},
	{"freq", "freq/value", "RF center frequency in Hz"},
	{"if-freq", "if_freq/value", "IF frequency in Hz"},
	{"bandwidth", "bandwidth/value", "analog bandwidth in Hz"},
	{"gain-profile", "gains/all/profile/value", "gain profile (low-noise|low-distortion|default)"},
	{"gain", "gains/all/value", "total gain in dB"},
	{"export", "los/all/export", "export this channel's LOs (true|false)"},
}

// readback lists the properties tune prints after resolving.
var readback = []struct{ target, path string }{
	{"", "freq/value"},
	{"", "if_freq/value"},
	{"", "los/LO1/freq/value"},
	{"", "los/LO2/freq/value"},
	{"", "los/all/source/value"},
	{"", "los/all/export"},
	{"", "gains/all/value"},
	{"", "antenna/value"},
	{"", "bandwidth/value"},
	{"board", "cal_mode/value"},
	{"board", "los/LO1/export_source"},
	{"board", "los/LO2/export_source"},
	{"board", "diag/lo_export_conflict"},
	{"board", "diag/antenna_conflict"},
}

// PropValue is a property read.
type PropValue struct {
	Target string `json:"target"`
	Path   string `json:"path"`
	Value  any    `json:"value"`
}

// TuneResult holds the tune command output.
type TuneResult struct {
	Writes     []plan.Result `json:"writes"`
	Properties []PropValue   `json:"properties"`
	Metrics    string        `json:"metrics,omitempty"`
}

// WriteText implements Text.
func (r TuneResult) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, wr := range r.Writes {
		fmt.Fprintf(tw, "set %s:%s\t%s\t-> %s\n", wr.Target, wr.Path, formatValue(wr.Requested), formatValue(wr.Stored))
	}
	if len(r.Writes) > 0 {
		fmt.Fprintln(tw)
	}
	for _, p := range r.Properties {
		fmt.Fprintf(tw, "%s:%s\t%s\n", p.Target, p.Path, formatValue(p.Value))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writeMetrics(w, r.Metrics)
}

func writeMetrics(w io.Writer, m string) error {
	if m == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n%s", m)
	return err
}

// NewTuneCommand creates the tune command.
func NewTuneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TuneOptions{RootOptions: rootOpts}
	values := make(map[string]*string, len(tuneFlags))

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Set channel properties and print the resolved settings",
		Long: `Set properties on one channel of a simulated board, resolve, and print
the values the front-end settled on.

Flags are applied in a fixed order (antenna, LO source, frequencies,
bandwidth, gain profile, gain, export) followed by every --set in the
order given.

Examples:
  twinrx tune --freq 2.4e9
  twinrx tune --channel 1 --lo-source companion --freq 5.5e9
  twinrx tune --set board:cal_mode/value=ch0 --set los/LO1/charge_pump/value=1.2e-6
  twinrx tune --freq 1e9 --db ./journal.db --format json
  twinrx tune --gain 70 --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var writes []write
			for _, f := range tuneFlags {
				if cmd.Flags().Changed(f.flag) {
					writes = append(writes, write{target: opts.Channel, path: f.path, value: *values[f.flag]})
				}
			}
			for _, s := range opts.Sets {
				w, err := parseSet(s, opts.Channel)
				if err != nil {
					return NewExitError(ExitCommandError, err.Error())
				}
				writes = append(writes, w)
			}
			return runTune(opts, writes, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal passes to this SQLite database")
	cmd.Flags().StringVarP(&opts.Channel, "channel", "c", "0", "channel to tune (0|1)")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "set a property: [target:]path=value")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print resolver metrics in Prometheus text format")
	for _, f := range tuneFlags {
		values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
	}

	return cmd
}

type write struct {
	target, path string
	value        string
}

// parseSet parses "[target:]path=value". Property paths never contain a
// colon, so the first colon before the '=' separates the target.
func parseSet(s, channel string) (write, error) {
	lhs, val, ok := strings.Cut(s, "=")
	if !ok || lhs == "" {
		return write{}, fmt.Errorf("invalid --set %q: want [target:]path=value", s)
	}
	target, path, ok := strings.Cut(lhs, ":")
	if !ok {
		target, path = channel, lhs
	}
	if target == "" || path == "" {
		return write{}, fmt.Errorf("invalid --set %q: empty target or path", s)
	}
	return write{target: target, path: path, value: val}, nil
}

func runTune(opts *TuneOptions, writes []write, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr(), opts.Database)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.tree(opts.Channel); err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	result := TuneResult{Writes: []plan.Result{}, Properties: []PropValue{}}
	for _, w := range writes {
		tree, err := s.tree(w.target)
		if err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
		formatter.VerboseLog("set %s:%s = %s", w.target, w.path, w.value)
		stored, err := tree.SetValue(w.path, w.value)
		if err != nil {
			_ = formatter.Error(ErrCodeProperty, err.Error(), map[string]string{"target": w.target, "path": w.path})
			return WrapExitError(ExitFailure, "write rejected", err)
		}
		result.Writes = append(result.Writes, plan.Result{Target: w.target, Path: w.path, Requested: w.value, Stored: stored})
	}

	if err := s.board.Container().ResolveAll(false); err != nil {
		return WrapExitError(ExitFailure, "resolution failed", err)
	}

	for _, rb := range readback {
		target := rb.target
		if target == "" {
			target = opts.Channel
		}
		tree, _ := s.tree(target)
		v, err := tree.GetValue(rb.path)
		if err != nil {
			return WrapExitError(ExitFailure, "read failed", err)
		}
		result.Properties = append(result.Properties, PropValue{Target: target, Path: rb.path, Value: v})
	}

	if opts.Metrics {
		if result.Metrics, err = s.metrics(); err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}
	return formatter.Success(result)
}

// formatValue prints floats without an exponent.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		if x == "" {
			return `""`
		}
		return x
	default:
		return fmt.Sprint(v)
	}
}
