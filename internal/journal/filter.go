package journal

import (
	"fmt"
	"strings"
)

// Filter selects journaled passes. Zero fields match everything.
type Filter struct {
	Session string
	Board   string
	// FromSeq and ToSeq bound the pass sequence, inclusive.
	FromSeq int64
	ToSeq   int64
	// Node keeps passes that changed the named node.
	Node       string
	ForcedOnly bool
	Limit      int
}

const passColumns = `p.session_id, p.seq, p.forced, p.iterations, p.workers, p.snapshot_hash,
		(SELECT COUNT(*) FROM changes c WHERE c.session_id = p.session_id AND c.seq = p.seq)`

// compile converts the filter into a parameterized query. Every value is
// bound, never interpolated, and rows are always ordered by seq with the
// session id as tiebreaker.
func (f Filter) compile() (string, []any, error) {
	if f.FromSeq < 0 || f.ToSeq < 0 {
		return "", nil, fmt.Errorf("negative sequence bound")
	}
	if f.ToSeq > 0 && f.FromSeq > f.ToSeq {
		return "", nil, fmt.Errorf("sequence range %d..%d is empty", f.FromSeq, f.ToSeq)
	}
	if f.Limit < 0 {
		return "", nil, fmt.Errorf("negative limit %d", f.Limit)
	}

	var (
		where  []string
		params []any
	)
	if f.Session != "" {
		where = append(where, "p.session_id = ?")
		params = append(params, f.Session)
	}
	if f.Board != "" {
		where = append(where, "s.board = ?")
		params = append(params, f.Board)
	}
	if f.FromSeq > 0 {
		where = append(where, "p.seq >= ?")
		params = append(params, f.FromSeq)
	}
	if f.ToSeq > 0 {
		where = append(where, "p.seq <= ?")
		params = append(params, f.ToSeq)
	}
	if f.Node != "" {
		where = append(where, "EXISTS (SELECT 1 FROM changes n WHERE n.session_id = p.session_id AND n.seq = p.seq AND n.node = ?)")
		params = append(params, f.Node)
	}
	if f.ForcedOnly {
		where = append(where, "p.forced = 1")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(passColumns)
	sb.WriteString("\n\tFROM passes p\n\tJOIN sessions s ON s.id = p.session_id")
	if len(where) > 0 {
		sb.WriteString("\n\tWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString("\n\tORDER BY p.seq ASC, p.session_id COLLATE BINARY ASC")
	if f.Limit > 0 {
		sb.WriteString("\n\tLIMIT ?")
		params = append(params, f.Limit)
	}
	return sb.String(), params, nil
}
