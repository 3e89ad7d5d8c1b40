package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveErrorCode categorizes resolution failures.
type ResolveErrorCode string

const (
	// ErrCodeNonConvergence indicates nodes were still dirty when the
	// iteration budget ran out.
	ErrCodeNonConvergence ResolveErrorCode = "NON_CONVERGENCE"

	// ErrCodeReentrant indicates a pass was started while another pass
	// was running.
	ErrCodeReentrant ResolveErrorCode = "REENTRANT"

	// ErrCodeWorkerFailed indicates a worker returned an error or touched
	// an undeclared node.
	ErrCodeWorkerFailed ResolveErrorCode = "WORKER_FAILED"

	// ErrCodeNotInitialized indicates use of a container before Initialize.
	ErrCodeNotInitialized ResolveErrorCode = "NOT_INITIALIZED"

	// ErrCodeAlreadyInitialized indicates a declaration after Initialize.
	ErrCodeAlreadyInitialized ResolveErrorCode = "ALREADY_INITIALIZED"

	// ErrCodeObserverFailed indicates a pass observer returned an error.
	ErrCodeObserverFailed ResolveErrorCode = "OBSERVER_FAILED"
)

// ResolveError describes a failed or refused resolution pass.
type ResolveError struct {
	Code    ResolveErrorCode
	Message string
	// Worker is set for WORKER_FAILED.
	Worker string
	// Dirty lists the nodes left unresolved, for NON_CONVERGENCE.
	Dirty []string
	Err   error
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Worker != "" {
		fmt.Fprintf(&b, " (worker=%s)", e.Worker)
	}
	if len(e.Dirty) > 0 {
		fmt.Fprintf(&b, " (dirty=%s)", strings.Join(e.Dirty, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsNonConvergenceError returns true if err carries a NON_CONVERGENCE error.
func IsNonConvergenceError(err error) bool {
	return hasCode(err, ErrCodeNonConvergence)
}

// IsReentrantError returns true if err carries a REENTRANT error, including
// one wrapped inside a WORKER_FAILED error.
func IsReentrantError(err error) bool {
	return hasCode(err, ErrCodeReentrant)
}

// IsWorkerError returns true if err carries a WORKER_FAILED error.
func IsWorkerError(err error) bool {
	return hasCode(err, ErrCodeWorkerFailed)
}

// IsNotInitializedError returns true if err carries a NOT_INITIALIZED error.
func IsNotInitializedError(err error) bool {
	return hasCode(err, ErrCodeNotInitialized)
}

// IsObserverFailedError returns true if err carries an OBSERVER_FAILED error.
func IsObserverFailedError(err error) bool {
	return hasCode(err, ErrCodeObserverFailed)
}

// hasCode walks the chain of ResolveErrors, since errors.As stops at the
// outermost one.
func hasCode(err error, code ResolveErrorCode) bool {
	for err != nil {
		var re *ResolveError
		if !errors.As(err, &re) {
			return false
		}
		if re.Code == code {
			return true
		}
		err = re.Err
	}
	return false
}

func newNonConvergenceError(be *BudgetExceededError, dirty []string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeNonConvergence,
		Message: fmt.Sprintf("no fixed point after %d iterations", be.Limit),
		Dirty:   dirty,
		Err:     be,
	}
}

func newWorkerError(worker string, err error) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeWorkerFailed,
		Message: "worker failed",
		Worker:  worker,
		Err:     err,
	}
}
