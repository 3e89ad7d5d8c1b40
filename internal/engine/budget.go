package engine

import (
	"errors"
	"fmt"
)

// DefaultIterationBudget bounds the iterations of one resolution pass. An
// acyclic plan without feedback nodes settles in a single iteration; the
// budget only matters when feedback nodes keep changing.
const DefaultIterationBudget = 32

// IterationBudget counts the iterations of one pass.
type IterationBudget struct {
	limit   int
	current int
}

// NewIterationBudget creates a budget allowing limit iterations.
func NewIterationBudget(limit int) *IterationBudget {
	return &IterationBudget{limit: limit}
}

// Check counts one iteration and fails once the limit is passed.
func (b *IterationBudget) Check() error {
	b.current++
	if b.current > b.limit {
		return &BudgetExceededError{Iterations: b.current, Limit: b.limit}
	}
	return nil
}

// Current returns the number of iterations counted.
func (b *IterationBudget) Current() int { return b.current }

// Limit returns the iteration limit.
func (b *IterationBudget) Limit() int { return b.limit }

// BudgetExceededError is returned by Check when the limit is passed.
type BudgetExceededError struct {
	Iterations int
	Limit      int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("iteration budget exceeded: %d iterations > %d limit", e.Iterations, e.Limit)
}

// IsBudgetExceededError returns true if err is a BudgetExceededError.
func IsBudgetExceededError(err error) bool {
	var be *BudgetExceededError
	return errors.As(err, &be)
}
