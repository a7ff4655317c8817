package engine

import (
	"context"
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/eventlog"
	"github.com/sid-xyz/go-sid/parser"
)

func mustDiagram(t *testing.T, text string) *diagram.Diagram {
	t.Helper()
	d, err := parser.ParseDiagram("d1", text)
	if err != nil {
		t.Fatalf("ParseDiagram(%q): %v", text, err)
	}
	return d
}

func TestRunStabilizesImmediatelyWithoutRules(t *testing.T) {
	d := mustDiagram(t, "C(P(Freedom), P(Time))")
	out, err := Run(context.Background(), d, nil, nil, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Stable || out.Halted || out.BudgetExhausted {
		t.Fatalf("outcome = %+v, want stable", out)
	}
	if out.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", out.Iterations)
	}
	if out.Metrics == nil {
		t.Fatal("stable run earned no metrics")
	}
	if out.Metrics.TransportFidelity != 1.0 {
		t.Errorf("transport_fidelity = %v, want 1.0 sentinel", out.Metrics.TransportFidelity)
	}
	if out.RunID == "" {
		t.Error("run id not assigned")
	}
}

func TestRunBudgetExhaustedUnderRequireAll(t *testing.T) {
	d := mustDiagram(t, "C(P(Freedom), P(Time))")
	rules := []diagram.Rule{{ID: "r1", PatternExpr: "C(x)", ReplacementExpr: "O(C(x))"}}
	log := eventlog.NewLog()
	out, err := Run(context.Background(), d, nil, nil, rules, nil, Options{
		MaxIterations: 3,
		RequireAll:    true,
		Log:           log,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Stable || !out.BudgetExhausted {
		t.Fatalf("outcome = %+v, want budget exhausted", out)
	}
	if got := len(log.ByKind(eventlog.KindApply)); got != 3 {
		t.Errorf("apply events = %d, want 3", got)
	}
	if got := len(out.Diagram.NodesByOp(diagram.OpCollapse)); got != 3 {
		t.Errorf("collapse nodes = %d, want 3", got)
	}
	if len(out.State.LoopHistory) != 3 {
		t.Errorf("loop history = %d samples, want 3", len(out.State.LoopHistory))
	}
}

func TestRunHaltsOnHardViolationUnderRequireAll(t *testing.T) {
	nodes := []diagram.Node{
		{ID: "n1", Op: diagram.OpTransport},
		{ID: "n2", Op: diagram.OpTransport},
	}
	edges := []diagram.Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "arg"},
		{ID: "e2", From: "n2", To: "n1", Label: "arg"},
	}
	d, err := diagram.New("d1", "", nodes, edges)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rules := []diagram.Rule{{
		ID:          "r1",
		Pattern:     "T(a) --arg--> T(b)",
		Replacement: "a --arg--> O(c), O(c) --arg--> b",
	}}
	constraints := []diagram.Constraint{
		{ID: "c1", Type: diagram.ConstraintHard, Predicate: "no_cycles"},
	}
	log := eventlog.NewLog()
	out, err := Run(context.Background(), d, nil, nil, rules, constraints, Options{
		RequireAll: true,
		Log:        log,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Halted || out.Stable {
		t.Fatalf("outcome = %+v, want halted", out)
	}
	if !out.State.Halted || out.State.HaltReason == "" {
		t.Errorf("state = halted %v, reason %q", out.State.Halted, out.State.HaltReason)
	}
	if got := len(log.ByKind(eventlog.KindHalt)); got != 1 {
		t.Errorf("halt events = %d, want 1", got)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := mustDiagram(t, "C(P(Freedom), P(Time))")
	_, err := Run(ctx, d, nil, nil, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRunPackage(t *testing.T) {
	d := mustDiagram(t, "C(P(Freedom), P(Time))")
	pkg := &parser.Package{
		Diagrams: []*diagram.Diagram{d},
		States:   []*diagram.State{{ID: "s1", DiagramID: "d1"}},
	}
	out, err := RunPackage(context.Background(), pkg, "s1", Options{})
	if err != nil {
		t.Fatalf("RunPackage: %v", err)
	}
	if !out.Stable {
		t.Errorf("outcome = %+v, want stable", out)
	}

	if _, err := RunPackage(context.Background(), pkg, "missing", Options{}); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestLabelChangeRatio(t *testing.T) {
	a := &diagram.State{Labels: map[string]diagram.Label{"n1": diagram.LabelIs, "n2": diagram.LabelIs}}
	b := &diagram.State{Labels: map[string]diagram.Label{"n1": diagram.LabelIs, "n2": diagram.LabelNot}}
	if got := labelChangeRatio(a, b); got != 0.5 {
		t.Errorf("ratio = %v, want 0.5", got)
	}
	if got := labelChangeRatio(nil, nil); got != 0 {
		t.Errorf("empty ratio = %v, want 0", got)
	}
	if got := labelChangeRatio(nil, a); got != 1.0 {
		t.Errorf("fresh ratio = %v, want 1.0", got)
	}
}
