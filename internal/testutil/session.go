package testutil

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "test-session-default"

// FixedSessionGenerator returns the same session id on every call, so
// journal rows and traces from repeated runs compare byte for byte.
// Unlike engine.FixedGenerator it never runs out.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id. An empty id yields
// DefaultSession.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSession
	}
	return &FixedSessionGenerator{id: id}
}

// Generate implements engine.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
