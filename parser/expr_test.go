package parser

import (
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
)

func TestParseExpression(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"P(Freedom)", "P(Freedom)"},
		{"S+(Freedom, Gradient)", "S+(Freedom, Gradient)"},
		{"C(P(Freedom), S-(Time))", "C(P(Freedom), S-(Time))"},
		{"O(T(P(Focus)))", "O(T(P(Focus)))"},
		{"Purpose", "Purpose"}, // identifier starting with an operator letter
	}
	for _, tc := range cases {
		expr, err := ParseExpression(tc.in)
		if err != nil {
			t.Errorf("ParseExpression(%q): %v", tc.in, err)
			continue
		}
		if got := expr.String(); got != tc.want {
			t.Errorf("ParseExpression(%q).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseExpressionErrors(t *testing.T) {
	cases := []string{
		"",
		"P()",             // zero arguments
		"P(a, b)",         // over arity
		"C(P(Freedom))",   // under arity
		"P(Freedom))",     // trailing token
		"P(Freedom",       // unclosed paren
		"C(P(Freedom),)",  // dangling comma
		"X(Freedom)",      // X is not an operator, bare call form
	}
	for _, in := range cases {
		if _, err := ParseExpression(in); err == nil {
			t.Errorf("ParseExpression(%q): expected error", in)
		}
	}
}

func TestParseExpressionReportsPosition(t *testing.T) {
	_, err := ParseExpression("C(P(Freedom), P())")
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.Line != 1 || pe.Column == 0 {
		t.Errorf("position = %d:%d, want line 1 with a column", pe.Line, pe.Column)
	}
}

func TestParsePatternRelaxesArityForVariables(t *testing.T) {
	if _, err := ParsePattern("C(x)"); err != nil {
		t.Errorf("ParsePattern(C(x)): %v", err)
	}
	if _, err := ParsePattern("C($left)"); err != nil {
		t.Errorf("ParsePattern(C($left)): %v", err)
	}
	// Literal argument lists still honor arity in pattern mode.
	if _, err := ParsePattern("C(Freedom)"); err == nil {
		t.Error("ParsePattern(C(Freedom)): expected arity error")
	}
}

func TestExprToDiagram(t *testing.T) {
	d, err := ParseDiagram("d1", "C(P(Freedom), S+(Time, Depth))")
	if err != nil {
		t.Fatalf("ParseDiagram: %v", err)
	}
	if len(d.Nodes) != 3 || len(d.Edges) != 2 {
		t.Fatalf("shape = %d nodes, %d edges", len(d.Nodes), len(d.Edges))
	}
	proj := d.NodesByOp(diagram.OpProjection)
	if len(proj) != 1 || len(proj[0].DOFRefs) != 1 || proj[0].DOFRefs[0] != "Freedom" {
		t.Errorf("projection node = %+v", proj)
	}
	pol := d.NodesByOp(diagram.OpPolarityPos)
	if len(pol) != 1 || len(pol[0].DOFRefs) != 2 {
		t.Errorf("polarity node = %+v", pol)
	}
	coupling := d.NodesByOp(diagram.OpCoupling)
	if len(coupling) != 1 || len(coupling[0].Inputs) != 2 {
		t.Errorf("coupling node = %+v", coupling)
	}
	for _, e := range d.Edges {
		if e.Label != "arg" {
			t.Errorf("edge %s label = %q, want arg", e.ID, e.Label)
		}
	}
}

func TestExprToDiagramCollapseIrreversible(t *testing.T) {
	d, err := ParseDiagram("d1", "O(P(Freedom))")
	if err != nil {
		t.Fatalf("ParseDiagram: %v", err)
	}
	collapses := d.NodesByOp(diagram.OpCollapse)
	if len(collapses) != 1 || !collapses[0].Irreversible {
		t.Fatalf("collapse = %+v, want irreversible", collapses)
	}
}

func TestBareAtomBecomesProjectionShorthand(t *testing.T) {
	d, err := ParseDiagram("d1", "Freedom")
	if err != nil {
		t.Fatalf("ParseDiagram: %v", err)
	}
	if len(d.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(d.Nodes))
	}
	n := d.Nodes[0]
	if n.Op != diagram.OpProjection || n.Meta == nil || !n.Meta.AtomOnly {
		t.Errorf("node = %+v, want atom-only projection", n)
	}

	expr, err := DiagramToExpr(d)
	if err != nil {
		t.Fatalf("DiagramToExpr: %v", err)
	}
	if expr.String() != "Freedom" {
		t.Errorf("round trip = %q, want Freedom", expr.String())
	}
}

func TestExpressionRoundTrip(t *testing.T) {
	cases := []string{
		"P(Freedom)",
		"O(P(Freedom))",
		"C(P(Freedom), P(Time))",
		"T(S-(Gradient))",
		"C(O(P(Focus)), S+(Depth, Reach))",
	}
	for _, in := range cases {
		d, err := ParseDiagram("d1", in)
		if err != nil {
			t.Errorf("ParseDiagram(%q): %v", in, err)
			continue
		}
		expr, err := DiagramToExpr(d)
		if err != nil {
			t.Errorf("DiagramToExpr(%q): %v", in, err)
			continue
		}
		if got := expr.String(); got != in {
			t.Errorf("round trip of %q = %q", in, got)
		}
	}
}

func TestDiagramToExprRejectsMultipleRoots(t *testing.T) {
	nodes := []diagram.Node{
		{ID: "n1", Op: diagram.OpProjection, DOFRefs: []string{"Freedom"}},
		{ID: "n2", Op: diagram.OpProjection, DOFRefs: []string{"Time"}},
	}
	d, err := diagram.New("d1", "", nodes, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := DiagramToExpr(d); err == nil {
		t.Error("expected an error for a two-rooted diagram")
	}
}
