package plan

import (
	"fmt"

	"github.com/roach88/twinrx/internal/prop"
	"github.com/roach88/twinrx/internal/twinrx"
)

// Result is the outcome of one step.
type Result struct {
	Target    string `json:"target"`
	Path      string `json:"path"`
	Requested any    `json:"requested"`
	// Stored is the value the property returned, after coercion.
	Stored any `json:"stored"`
}

// Apply writes every step to the board in order, then runs a pass so that
// deferred writes settle. It stops at the first failing step.
func (p *Plan) Apply(b *twinrx.Board) ([]Result, error) {
	results := make([]Result, 0, len(p.Steps))
	for _, s := range p.Steps {
		tree, err := treeFor(b, s.Target)
		if err != nil {
			return results, fmt.Errorf("%s: %w", s.Range, err)
		}
		stored, err := tree.SetValue(s.Path, s.Value)
		if err != nil {
			return results, fmt.Errorf("%s: %w", s.Range, err)
		}
		results = append(results, Result{Target: s.Target, Path: s.Path, Requested: s.Value, Stored: stored})
	}
	if err := b.Container().ResolveAll(false); err != nil {
		return results, fmt.Errorf("apply %s: %w", p.Name, err)
	}
	return results, nil
}

func treeFor(b *twinrx.Board, target string) (*prop.Tree, error) {
	if target == BoardTarget {
		return b.Props(), nil
	}
	fe, ok := b.Frontend(target)
	if !ok {
		return nil, fmt.Errorf("unknown channel %q", target)
	}
	return fe.Props(), nil
}
