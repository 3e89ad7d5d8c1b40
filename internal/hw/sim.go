// Package hw provides a simulated TwinRX hardware control.
//
// Sim stands in for the register layer: it records every applied Settings
// value, reports LO lock and serves the revision's charge pump ranges. A
// synthesizer reports lock once settings carrying a valid frequency for it
// have been applied, unless the Sim is built always-locked.
package hw

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/twinrx/internal/twinrx"
	"github.com/roach88/twinrx/internal/value"
)

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("hw: control closed")

// Option configures a Sim.
type Option func(*Sim)

// AlwaysLocked makes every LO report lock regardless of applied settings.
func AlwaysLocked() Option {
	return func(s *Sim) { s.alwaysLocked = true }
}

// WithLogger sets the logger used for applied settings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) { s.log = l }
}

// Sim is a simulated board control. It is safe for concurrent use.
type Sim struct {
	rev          twinrx.Revision
	alwaysLocked bool
	log          *slog.Logger

	mu      sync.Mutex
	applied []twinrx.Settings
	locked  map[string]map[twinrx.Stage]bool
	closed  bool
}

// NewSim creates a simulated control for a revision.
func NewSim(rev twinrx.Revision, opts ...Option) *Sim {
	s := &Sim{
		rev:    rev,
		log:    slog.Default(),
		locked: make(map[string]map[twinrx.Stage]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChargePumpRange returns the revision's charge pump range.
func (s *Sim) ChargePumpRange(st twinrx.Stage) value.Range {
	return s.rev.ChargePump[st]
}

// Apply records the settings and updates lock state.
func (s *Sim) Apply(ctx context.Context, set twinrx.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.applied = append(s.applied, set)
	for ch, cs := range set.Channels {
		lk := make(map[twinrx.Stage]bool, len(twinrx.Stages))
		for _, st := range twinrx.Stages {
			f := cs.LOFreq[st]
			lk[st] = cs.LOSource[st] != twinrx.SourceDisabled && twinrx.LORange[st].Contains(f)
		}
		s.locked[ch] = lk
	}
	s.log.Debug("settings applied", "count", len(s.applied), "mapping", set.AntMapping)
	return nil
}

// LOLocked reports whether a channel's LO stage is locked.
func (s *Sim) LOLocked(ch string, st twinrx.Stage) (bool, error) {
	if s.alwaysLocked {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked[ch][st], nil
}

// Applied returns the number of Apply calls so far.
func (s *Sim) Applied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

// Last returns the most recently applied settings.
func (s *Sim) Last() (twinrx.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.applied) == 0 {
		return twinrx.Settings{}, false
	}
	return s.applied[len(s.applied)-1], true
}

// Close makes further Apply calls fail.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
