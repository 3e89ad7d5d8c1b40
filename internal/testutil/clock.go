// Package testutil holds deterministic helpers for scenario runs and tests.
package testutil

import "sync"

// StepClock numbers the steps of a scenario run. Passes are tagged with the
// step that triggered them, so a trace reads the same on every run.
type StepClock struct {
	mu  sync.Mutex
	seq int64
}

// NewStepClock creates a clock at step 0. The first Next returns 1.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Next advances to and returns the next step.
func (c *StepClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current step. Passes run during board construction
// are tagged 0.
func (c *StepClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset returns the clock to step 0.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
