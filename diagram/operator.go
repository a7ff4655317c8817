package diagram

import "fmt"

// Op identifies one of the six composable operators.
type Op string

const (
	// OpProjection (P) selects a single degree of freedom.
	OpProjection Op = "P"
	// OpPolarityPos (S+) marks positive polarity over one or more DOFs.
	OpPolarityPos Op = "S+"
	// OpPolarityNeg (S-) marks negative polarity over one or more DOFs.
	OpPolarityNeg Op = "S-"
	// OpCollapse (O) marks an irreversible commitment.
	OpCollapse Op = "O"
	// OpCoupling (C) combines exactly two operands.
	OpCoupling Op = "C"
	// OpTransport (T) moves its operand across a compartment boundary.
	OpTransport Op = "T"
)

// Arity declares how many operands an operator accepts.
// Max < 0 means unbounded.
type Arity struct {
	Min int
	Max int
}

var arityTable = map[Op]Arity{
	OpProjection:  {Min: 1, Max: 1},
	OpPolarityPos: {Min: 1, Max: -1},
	OpPolarityNeg: {Min: 1, Max: -1},
	OpCollapse:    {Min: 1, Max: 1},
	OpCoupling:    {Min: 2, Max: 2},
	OpTransport:   {Min: 1, Max: 1},
}

// Ops returns the closed operator set in declaration order.
func Ops() []Op {
	return []Op{OpProjection, OpPolarityPos, OpPolarityNeg, OpCollapse, OpCoupling, OpTransport}
}

// ValidOp reports whether op is a member of the operator set.
func ValidOp(op Op) bool {
	_, ok := arityTable[op]
	return ok
}

// ValidOpName reports whether the string names an operator.
func ValidOpName(s string) bool {
	return ValidOp(Op(s))
}

// ArityOf returns the declared arity for op.
func ArityOf(op Op) (Arity, bool) {
	a, ok := arityTable[op]
	return a, ok
}

// CheckArity validates an operand count against the operator's declared
// arity. It is the single arity validator, consulted by the expression
// parser, the diagram constructor, and rewrite application.
func CheckArity(op Op, argc int) error {
	a, ok := arityTable[op]
	if !ok {
		return fmt.Errorf("unknown operator %q", string(op))
	}
	if argc < a.Min {
		return fmt.Errorf("operator %q requires at least %d operand(s), got %d", string(op), a.Min, argc)
	}
	if a.Max >= 0 && argc > a.Max {
		return fmt.Errorf("operator %q accepts at most %d operand(s), got %d", string(op), a.Max, argc)
	}
	return nil
}
