package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the resolution graph in Graphviz format",
		Long: `Print the board's node/worker graph in Graphviz DOT format.

Workers are boxes listed in resolution order, nodes are ellipses and
feedback edges are dashed. With --audit the nodes are listed with their
types, access and settled values instead.

Examples:
  twinrx graph | dot -Tsvg > twinrx.svg
  twinrx graph --audit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd.ErrOrStderr(), "")
			if err != nil {
				return err
			}
			defer s.close()

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			c := s.board.Container()
			switch {
			case audit && rootOpts.Format == "json":
				return formatter.Success(c.Audit())
			case audit:
				return c.Audit().Write(cmd.OutOrStdout())
			case rootOpts.Format == "json":
				return formatter.Success(map[string]string{"dot": c.Dot()})
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.Dot())
			return err
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "list nodes and workers instead of DOT")

	return cmd
}

// PropsOptions holds flags for the props command.
type PropsOptions struct {
	*RootOptions
	Target string
}

// PropEntry describes one property.
type PropEntry struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Policy   string `json:"policy"`
	Writable bool   `json:"writable"`
	Value    any    `json:"value"`
}

// PropsResult holds the props command output.
type PropsResult struct {
	Target     string      `json:"target"`
	Properties []PropEntry `json:"properties"`
}

// WriteText implements Text.
func (r PropsResult) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tKIND\tPOLICY\tRW\tVALUE")
	for _, p := range r.Properties {
		rw := "ro"
		if p.Writable {
			rw = "rw"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Path, p.Kind, p.Policy, rw, formatValue(p.Value))
	}
	return tw.Flush()
}

// NewPropsCommand creates the props command.
func NewPropsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PropsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "props",
		Short: "List properties with their values, ranges and options",
		Long: `List the property tree of a channel or of the board, in registration
order, with each property's kind, resolve policy and current value.

Examples:
  twinrx props
  twinrx props --target board
  twinrx props --target 1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProps(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "0", "channel (0|1) or board")

	return cmd
}

func runProps(opts *PropsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	s, err := openSession(opts.RootOptions, cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}
	defer s.close()

	tree, err := s.tree(opts.Target)
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	entries, err := describeTree(tree)
	if err != nil {
		return WrapExitError(ExitFailure, "read failed", err)
	}
	return formatter.Success(PropsResult{Target: opts.Target, Properties: entries})
}

func describeTree(t *prop.Tree) ([]PropEntry, error) {
	paths := t.Paths()
	out := make([]PropEntry, 0, len(paths))
	for _, path := range paths {
		kind, policy, writable, err := t.Describe(path)
		if err != nil {
			return nil, err
		}
		v, err := t.GetValue(path)
		if err != nil {
			return nil, err
		}
		out = append(out, PropEntry{
			Path:     path,
			Kind:     kind.String(),
			Policy:   policy.String(),
			Writable: writable,
			Value:    v,
		})
	}
	return out, nil
}

// RevisionEntry describes a registered board revision.
type RevisionEntry struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	ChargePump map[string]string  `json:"charge_pump"`
	Defaults   map[string]float64 `json:"charge_pump_default"`
}

type revisionList []RevisionEntry

// WriteText implements Text.
func (l revisionList) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLO1 CHARGE PUMP\tLO2 CHARGE PUMP")
	for _, r := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.ChargePump[string(twinrx.LO1)], r.ChargePump[string(twinrx.LO2)])
	}
	return tw.Flush()
}

// NewRevisionsCommand creates the revisions command.
func NewRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revisions",
		Short:         "List registered board revisions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			revs := twinrx.Revisions()
			out := make(revisionList, 0, len(revs))
			for _, r := range revs {
				e := RevisionEntry{
					ID:         fmt.Sprintf("%#x", r.ID),
					Name:       r.Name,
					ChargePump: make(map[string]string, len(twinrx.Stages)),
					Defaults:   make(map[string]float64, len(twinrx.Stages)),
				}
				for _, st := range twinrx.Stages {
					e.ChargePump[string(st)] = r.ChargePump[st].String()
					e.Defaults[string(st)] = r.ChargePumpDefault[st]
				}
				out = append(out, e)
			}
			return formatter.Success(out)
		},
	}
}
