package graph

import (
	"errors"
	"fmt"
	"strings"
)

// BuildErrorCode categorizes build failures.
type BuildErrorCode string

const (
	// ErrCodeCycle indicates the precedence relation has a cycle.
	ErrCodeCycle BuildErrorCode = "CYCLE"

	// ErrCodeWriteConflict indicates two workers write the same node.
	ErrCodeWriteConflict BuildErrorCode = "WRITE_CONFLICT"

	// ErrCodeUnknownNode indicates a worker declares a node that was never created.
	ErrCodeUnknownNode BuildErrorCode = "UNKNOWN_NODE"

	// ErrCodeUserNodeWritten indicates a worker declares a write to a
	// node reserved for the property façade.
	ErrCodeUserNodeWritten BuildErrorCode = "USER_NODE_WRITTEN"

	// ErrCodeDuplicateWorker indicates two workers share a name.
	ErrCodeDuplicateWorker BuildErrorCode = "DUPLICATE_WORKER"

	// ErrCodeEmptyWorkerName indicates a worker without a name.
	ErrCodeEmptyWorkerName BuildErrorCode = "EMPTY_WORKER_NAME"
)

// BuildError is returned by Build. Build errors are fatal: the board must
// not reach a usable state.
type BuildError struct {
	Code    BuildErrorCode
	Message string
	// Workers lists the workers involved. For cycles it is the cycle path,
	// first element repeated at the end.
	Workers []string
	Node    string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Node != "" {
		fmt.Fprintf(&b, " (node=%s)", e.Node)
	}
	if len(e.Workers) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Workers, " -> "))
	}
	return b.String()
}

// IsBuildError returns true if err is a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// IsCycleError returns true if err is a BuildError for a cycle.
func IsCycleError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeCycle
	}
	return false
}

// IsWriteConflictError returns true if err is a BuildError for two writers.
func IsWriteConflictError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeWriteConflict
	}
	return false
}

// AccessError reports a worker touching a node outside its declared sets.
type AccessError struct {
	Worker string
	Node   string
	Op     string // "read" or "write"
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("worker %s: undeclared %s of node %q", e.Worker, e.Op, e.Node)
}
