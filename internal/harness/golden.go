package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/twinrx/internal/value"
)

// SnapshotJSON renders a scenario's snapshot properties as canonical JSON.
func SnapshotJSON(name string, r *Result) ([]byte, error) {
	props := make(map[string]any, len(r.Snapshot))
	for k, v := range r.Snapshot {
		props[k] = v
	}
	return value.MarshalCanonical(map[string]any{
		"scenario":   name,
		"properties": props,
	})
}

// RunWithGolden runs a scenario and compares its snapshot properties with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(s, opts...)
	if err != nil {
		return nil, err
	}
	data, err := SnapshotJSON(s.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return result, nil
}
