package journal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/value"
)

// Session identifies one board container.
type Session struct {
	ID       string `json:"id"`
	Board    string `json:"board"`
	Revision string `json:"revision"`
}

// WriteSession records a session. Writing the same id again is a no-op.
func (j *Journal) WriteSession(ctx context.Context, s Session) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, board, revision)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, s.Board, s.Revision)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WritePass records a pass and the values of the nodes it changed, in one
// transaction. The pass's session must already be written. Re-writing a
// recorded pass is a no-op.
func (j *Journal) WritePass(ctx context.Context, p *engine.Pass) (err error) {
	ctx, span := tracer.Start(ctx, "journal.WritePass",
		trace.WithAttributes(
			attribute.String("session", p.Session),
			attribute.Int64("seq", p.Seq),
			attribute.Int("changed", len(p.Changed)),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	workers, err := value.MarshalCanonical(p.Workers)
	if err != nil {
		return fmt.Errorf("write pass %d: %w", p.Seq, err)
	}
	hash, err := p.Snapshot.Hash()
	if err != nil {
		return fmt.Errorf("write pass %d: %w", p.Seq, err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write pass %d: %w", p.Seq, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO passes (session_id, seq, forced, iterations, workers, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, p.Session, p.Seq, p.Forced, p.Iterations, string(workers), hash)
	if err != nil {
		return fmt.Errorf("write pass %d: %w", p.Seq, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	for _, name := range p.Changed {
		v, ok := p.Snapshot.Get(name)
		if !ok {
			return fmt.Errorf("write pass %d: changed node %q missing from snapshot", p.Seq, name)
		}
		data, err := value.MarshalCanonical(v)
		if err != nil {
			return fmt.Errorf("write pass %d: node %s: %w", p.Seq, name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO changes (session_id, seq, node, value)
			VALUES (?, ?, ?, ?)
		`, p.Session, p.Seq, name, string(data)); err != nil {
			return fmt.Errorf("write pass %d: node %s: %w", p.Seq, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write pass %d: %w", p.Seq, err)
	}
	return nil
}
