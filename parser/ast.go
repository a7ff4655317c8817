// Package parser implements the textual expression grammar for
// structured interaction diagrams,
//
//	expr ::= op | op "(" expr {"," expr} ")"
//	op   ::= "P" | "S+" | "S-" | "O" | "C" | "T"
//
// conversion between expressions and diagram values, and JSON
// interchange for whole packages.
package parser

import (
	"strings"

	"github.com/sid-xyz/go-sid/diagram"
)

// Expr is a parsed expression tree: either an Atom or an OpExpr.
type Expr interface {
	String() string
	exprNode()
}

// Atom is a bare name: a DOF reference, or a pattern variable when the
// name is $-prefixed or a single lowercase letter.
type Atom struct {
	Name string
}

func (a Atom) exprNode()      {}
func (a Atom) String() string { return a.Name }

// OpExpr is an operator applied to argument expressions.
type OpExpr struct {
	Op   diagram.Op
	Args []Expr
}

func (o OpExpr) exprNode() {}

func (o OpExpr) String() string {
	if len(o.Args) == 0 {
		return string(o.Op)
	}
	parts := make([]string, len(o.Args))
	for i, a := range o.Args {
		parts[i] = a.String()
	}
	return string(o.Op) + "(" + strings.Join(parts, ", ") + ")"
}

// IsVariable reports whether an atom name is a pattern variable:
// $-prefixed, or a single lowercase ASCII letter.
func IsVariable(name string) bool {
	if strings.HasPrefix(name, "$") {
		return true
	}
	return len(name) == 1 && name[0] >= 'a' && name[0] <= 'z'
}

// VarName strips the variable marker from an atom name.
func VarName(name string) string {
	return strings.TrimPrefix(name, "$")
}
