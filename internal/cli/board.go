package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/twinrx/internal/config"
	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/hw"
	"github.com/roach88/twinrx/internal/journal"
	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

// session is a board built from a profile against the simulator, with an
// optional journal recording every pass. Resolver metrics go to a registry
// private to the session.
type session struct {
	profile  config.Profile
	board    *twinrx.Board
	sim      *hw.Sim
	journal  *journal.Journal
	registry *prometheus.Registry
}

// openSession builds a board. dbPath overrides the profile's journal; an
// empty path with no profile journal disables journaling.
func openSession(opts *RootOptions, stderr io.Writer, dbPath string) (*session, error) {
	p, err := opts.profile()
	if err != nil {
		return nil, err
	}
	if dbPath == "" {
		dbPath = p.Journal
	}
	rev, err := twinrx.LookupRevision(p.Revision)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load profile", err)
	}
	log := opts.logger(p, stderr)

	s := &session{profile: p, registry: prometheus.NewRegistry()}
	eopts := []engine.Option{engine.WithMetrics(engine.NewMetrics(s.registry))}
	if dbPath != "" {
		s.journal, err = journal.Open(dbPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		eopts = append(eopts, engine.WithObserver(journal.NewRecorder(s.journal, p.Board, rev.Name)))
	}

	s.sim = hw.NewSim(rev, hw.AlwaysLocked(), hw.WithLogger(log))
	bopts := append(p.BoardOptions(),
		twinrx.WithLogger(log),
		twinrx.WithEngineOptions(eopts...),
	)
	s.board, err = twinrx.Build(p.Revision, s.sim, bopts...)
	if err != nil {
		s.close()
		return nil, WrapExitError(ExitFailure, "failed to build board", err)
	}
	return s, nil
}

func (s *session) close() error {
	var errs []error
	if s.sim != nil {
		errs = append(errs, s.sim.Close())
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	return errors.Join(errs...)
}

// metrics renders the session's resolver metrics in the Prometheus text
// exposition format.
func (s *session) metrics() (string, error) {
	families, err := s.registry.Gather()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// tree returns the board tree for "board" and a channel tree otherwise.
func (s *session) tree(target string) (*prop.Tree, error) {
	if target == "board" {
		return s.board.Props(), nil
	}
	fe, ok := s.board.Frontend(target)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", target)
	}
	return fe.Props(), nil
}
