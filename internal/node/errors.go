package node

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeDuplicate indicates a node name was created twice.
	ErrCodeDuplicate ErrorCode = "DUPLICATE"

	// ErrCodeNotFound indicates an access to a node that was never created.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeTypeMismatch indicates an access with a type other than the
	// node's creation type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeReadOnly indicates an external write to a worker-owned node.
	ErrCodeReadOnly ErrorCode = "READ_ONLY"

	// ErrCodeNonFinite indicates a write of NaN or an infinity.
	ErrCodeNonFinite ErrorCode = "NON_FINITE"
)

// Error is returned by every failing store operation.
type Error struct {
	Code ErrorCode
	Node string
	// Want and Got are set for type mismatches.
	Want string
	Got  string
}

func (e *Error) Error() string {
	if e.Code == ErrCodeTypeMismatch {
		return fmt.Sprintf("%s: node %q holds %s, accessed as %s", e.Code, e.Node, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: node %q", e.Code, e.Node)
}

// IsNotFound returns true if err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsTypeMismatch returns true if err is a TYPE_MISMATCH store error.
func IsTypeMismatch(err error) bool {
	return hasCode(err, ErrCodeTypeMismatch)
}

// IsReadOnly returns true if err is a READ_ONLY store error.
func IsReadOnly(err error) bool {
	return hasCode(err, ErrCodeReadOnly)
}

// IsNonFinite returns true if err is a NON_FINITE store error.
func IsNonFinite(err error) bool {
	return hasCode(err, ErrCodeNonFinite)
}

// IsDuplicate returns true if err is a DUPLICATE store error.
func IsDuplicate(err error) bool {
	return hasCode(err, ErrCodeDuplicate)
}

func hasCode(err error, code ErrorCode) bool {
	var ne *Error
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}
