package journal

import (
	"context"
	"sync"

	"github.com/roach88/twinrx/internal/engine"
)

// Recorder journals every pass of a container. It writes the session row
// the first time it sees a session id.
type Recorder struct {
	j        *Journal
	board    string
	revision string

	mu   sync.Mutex
	seen map[string]bool
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder for a board of the given revision.
func NewRecorder(j *Journal, board, revision string) *Recorder {
	return &Recorder{j: j, board: board, revision: revision, seen: make(map[string]bool)}
}

// Observe implements engine.Observer.
func (r *Recorder) Observe(ctx context.Context, p *engine.Pass) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seen[p.Session] {
		s := Session{ID: p.Session, Board: r.board, Revision: r.revision}
		if err := r.j.WriteSession(ctx, s); err != nil {
			return err
		}
		r.seen[p.Session] = true
	}
	return r.j.WritePass(ctx, p)
}
