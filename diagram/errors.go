package diagram

import (
	"errors"
	"fmt"
)

// Structural error categories.
const (
	CategoryDuplicateID   = "duplicate_id"
	CategoryMissingID     = "missing_id"
	CategoryDanglingEdge  = "dangling_edge"
	CategoryDanglingInput = "dangling_input"
	CategoryArity         = "arity"
	CategoryUnknownOp     = "unknown_op"
	CategoryCycle         = "illegal_cycle"
)

var (
	ErrUninitializedLabels = errors.New("diagram: state labels not initialized")
)

// StructuralError reports a violated diagram invariant: a dangling
// reference, a duplicate id, an arity violation, or an illegal cycle.
// The operation that detected it fails atomically; the prior value is
// left unchanged.
type StructuralError struct {
	Category string // one of the Category* constants
	Element  string // offending node or edge id, if known
	Detail   string
}

func (e *StructuralError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("diagram: %s (%s): %s", e.Category, e.Element, e.Detail)
	}
	return fmt.Sprintf("diagram: %s: %s", e.Category, e.Detail)
}

func structuralf(category, element, format string, args ...interface{}) *StructuralError {
	return &StructuralError{
		Category: category,
		Element:  element,
		Detail:   fmt.Sprintf(format, args...),
	}
}
