package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/twinrx/internal/plan"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
	DryRun   bool
	Metrics  bool
}

// ApplyResult holds the apply command output.
type ApplyResult struct {
	Plan    string        `json:"plan"`
	Session string        `json:"session,omitempty"`
	Steps   int           `json:"steps"`
	Results []plan.Result `json:"results"`
	Metrics string        `json:"metrics,omitempty"`
}

// WriteText implements Text.
func (r ApplyResult) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s:%s\t%s\t-> %s\n", res.Target, res.Path, formatValue(res.Requested), formatValue(res.Stored))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if r.Session != "" {
		fmt.Fprintf(w, "\nApplied %d step(s) from %s (session %s)\n", len(r.Results), r.Plan, r.Session)
	} else {
		fmt.Fprintf(w, "\nApplied %d step(s) from %s\n", len(r.Results), r.Plan)
	}
	return writeMetrics(w, r.Metrics)
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <plan.hcl>",
		Short: "Apply an HCL tune plan",
		Long: `Apply an HCL tune plan to a simulated board.

Plan steps run in source order. Each result shows the requested value and
the value the property stored after coercion. With --db every resolution
pass is journaled under a new session.

Exit codes:
  0 - Every step applied
  1 - A step was rejected
  2 - Command error (plan not found, parse error, bad profile)

Examples:
  twinrx apply retune.hcl
  twinrx apply retune.hcl --db ./journal.db
  twinrx apply retune.hcl --dry-run --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal passes to this SQLite database")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse the plan and list its steps without applying")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print resolver metrics in Prometheus text format")

	return cmd
}

func runApply(opts *ApplyOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("plan not found: %s", path))
	}
	p, err := plan.Load(path)
	if err != nil {
		_ = formatter.Error(ErrCodePlan, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load plan", err)
	}

	if opts.DryRun {
		result := ApplyResult{Plan: p.Name, Steps: len(p.Steps), Results: make([]plan.Result, 0, len(p.Steps))}
		for _, s := range p.Steps {
			result.Results = append(result.Results, plan.Result{Target: s.Target, Path: s.Path, Requested: s.Value})
		}
		return formatter.Success(result)
	}

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr(), opts.Database)
	if err != nil {
		return err
	}
	defer s.close()

	results, err := p.Apply(s.board)
	if err != nil {
		_ = formatter.Error(ErrCodePlan, err.Error(), results)
		return WrapExitError(ExitFailure, "plan step failed", err)
	}
	formatter.VerboseLog("applied %d step(s)", len(results))

	result := ApplyResult{Plan: p.Name, Steps: len(p.Steps), Results: results}
	if s.journal != nil {
		result.Session = s.board.Container().Session()
	}
	if opts.Metrics {
		if result.Metrics, err = s.metrics(); err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}
	return formatter.Success(result)
}
