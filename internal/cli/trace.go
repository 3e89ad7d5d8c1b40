package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/twinrx/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Changes  bool
	Filter   journal.Filter
}

// TracePass is a journaled pass with its changes.
type TracePass struct {
	journal.PassRecord
	Values []journal.Change `json:"values,omitempty"`
}

// TraceResult holds the trace command output.
type TraceResult struct {
	Sessions []journal.Session `json:"sessions"`
	Passes   []TracePass       `json:"passes"`
	Stats    TraceStats        `json:"stats"`
}

// TraceStats holds summary statistics for the listed passes.
type TraceStats struct {
	Passes     int `json:"passes"`
	Forced     int `json:"forced"`
	WorkerRuns int `json:"worker_runs"`
	Changes    int `json:"changes"`
}

// WriteText implements Text.
func (r TraceResult) WriteText(w io.Writer) error {
	if len(r.Passes) == 0 {
		_, err := fmt.Fprintln(w, "No passes found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSEQ\tFORCED\tITER\tWORKERS\tCHANGED\tHASH")
	for _, p := range r.Passes {
		forced := ""
		if p.Forced {
			forced = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%d\t%s\n", p.Session, p.Seq, forced, p.Iterations, len(p.Workers), p.Changed, shortHash(p.SnapshotHash))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, p := range r.Passes {
		if len(p.Values) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s seq %d: %s\n", p.Session, p.Seq, strings.Join(p.Workers, ", "))
		for _, c := range p.Values {
			fmt.Fprintf(w, "  %s = %s\n", c.Node, c.Value)
		}
	}
	fmt.Fprintf(w, "\n%d pass(es), %d forced, %d worker run(s), %d change(s)\n",
		r.Stats.Passes, r.Stats.Forced, r.Stats.WorkerRuns, r.Stats.Changes)
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled resolution passes",
		Long: `List the resolution passes recorded in a journal, ordered by sequence.

Each pass shows the workers that ran, how many nodes changed and the hash
of the settled node snapshot. With --changes the changed node values are
printed as canonical JSON.

Examples:
  twinrx trace --db ./journal.db
  twinrx trace --db ./journal.db --node 0/ch/signal_path --changes
  twinrx trace --db ./journal.db --session 0193... --from 10 --to 40 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Changes, "changes", false, "include changed node values")
	cmd.Flags().StringVar(&opts.Filter.Session, "session", "", "only passes of this session")
	cmd.Flags().StringVar(&opts.Filter.Board, "board", "", "only passes of this board")
	cmd.Flags().Int64Var(&opts.Filter.FromSeq, "from", 0, "lowest sequence number")
	cmd.Flags().Int64Var(&opts.Filter.ToSeq, "to", 0, "highest sequence number (0 for no bound)")
	cmd.Flags().StringVar(&opts.Filter.Node, "node", "", "only passes that changed this node")
	cmd.Flags().BoolVar(&opts.Filter.ForcedOnly, "forced", false, "only forced passes")
	cmd.Flags().IntVar(&opts.Filter.Limit, "limit", 0, "maximum number of passes (0 for all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	sessions, err := j.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	records, err := j.Passes(ctx, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to query passes", err)
	}

	result := TraceResult{Sessions: sessions, Passes: make([]TracePass, 0, len(records))}
	for _, rec := range records {
		tp := TracePass{PassRecord: rec}
		if opts.Changes {
			tp.Values, err = j.Changes(ctx, rec.Session, rec.Seq)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to query changes", err)
			}
		}
		result.Passes = append(result.Passes, tp)

		result.Stats.Passes++
		if rec.Forced {
			result.Stats.Forced++
		}
		result.Stats.WorkerRuns += len(rec.Workers)
		result.Stats.Changes += rec.Changed
	}
	formatter.VerboseLog("%d session(s), %d pass(es)", len(sessions), len(records))

	return formatter.Success(result)
}
