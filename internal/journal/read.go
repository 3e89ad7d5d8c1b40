package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PassRecord is a journaled pass.
type PassRecord struct {
	Session      string   `json:"session"`
	Seq          int64    `json:"seq"`
	Forced       bool     `json:"forced"`
	Iterations   int      `json:"iterations"`
	Workers      []string `json:"workers"`
	SnapshotHash string   `json:"snapshot_hash"`
	Changed      int      `json:"changed"`
}

// Change is the value a pass gave a node, as canonical JSON.
type Change struct {
	Node  string `json:"node"`
	Value string `json:"value"`
}

// Passes returns the passes matching f, ordered by seq.
// It returns an empty slice, not nil, when nothing matches.
func (j *Journal) Passes(ctx context.Context, f Filter) (out []PassRecord, err error) {
	ctx, span := tracer.Start(ctx, "journal.Passes",
		trace.WithAttributes(
			attribute.String("session", f.Session),
			attribute.String("node", f.Node),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("result_count", len(out)))
	}()

	query, params, err := f.compile()
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	rows, err := j.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	out = []PassRecord{}
	for rows.Next() {
		rec, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return out, nil
}

func scanPass(rows *sql.Rows) (PassRecord, error) {
	var (
		rec     PassRecord
		workers string
	)
	if err := rows.Scan(&rec.Session, &rec.Seq, &rec.Forced, &rec.Iterations, &workers, &rec.SnapshotHash, &rec.Changed); err != nil {
		return PassRecord{}, fmt.Errorf("scan pass: %w", err)
	}
	if err := json.Unmarshal([]byte(workers), &rec.Workers); err != nil {
		return PassRecord{}, fmt.Errorf("pass %d workers: %w", rec.Seq, err)
	}
	return rec, nil
}

// Changes returns the node values a pass changed, ordered by node name.
func (j *Journal) Changes(ctx context.Context, session string, seq int64) ([]Change, error) {
	ctx, span := tracer.Start(ctx, "journal.Changes",
		trace.WithAttributes(
			attribute.String("session", session),
			attribute.Int64("seq", seq),
		),
	)
	defer span.End()

	rows, err := j.db.QueryContext(ctx, `
		SELECT node, value
		FROM changes
		WHERE session_id = ? AND seq = ?
		ORDER BY node COLLATE BINARY ASC
	`, session, seq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	out := []Change{}
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Node, &c.Value); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return out, nil
}

// Sessions returns all recorded sessions ordered by id. UUIDv7 ids sort by
// creation time.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, board, revision
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Board, &s.Revision); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
