package crf

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
)

func testCSI() *diagram.CSI {
	return diagram.NewCSI("csi1",
		[]string{"Freedom", "Gradient"},
		[]diagram.DOFPair{{"Freedom", "Gradient"}, {"Gradient", "Freedom"}},
	)
}

// couplingDiagram builds P(Freedom) --Coupling--> C(Gradient).
func couplingDiagram(t *testing.T) *diagram.Diagram {
	t.Helper()
	d, err := diagram.New("d1", "c1", []diagram.Node{
		{ID: "n1", Op: diagram.OpProjection, DOFRefs: []string{"Freedom"}},
		{ID: "n2", Op: diagram.OpCoupling, DOFRefs: []string{"Gradient"}},
	}, []diagram.Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "Coupling"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func baseConstraints() []diagram.Constraint {
	return []diagram.Constraint{
		{ID: "c_acyclic", Type: diagram.ConstraintHard, Scope: diagram.ScopeGlobal, Predicate: PredNoCycles},
		{ID: "c_collapse", Type: diagram.ConstraintHard, Predicate: PredCollapseIrreversible},
		{ID: "c_csi", Type: diagram.ConstraintHard, Predicate: PredCSIBoundary},
		{ID: "c_transport", Type: diagram.ConstraintHard, Predicate: PredCompartmentTransitions},
	}
}

func TestRegistryFrozen(t *testing.T) {
	r := DefaultRegistry()
	if err := r.Register("late", func(*diagram.State, *diagram.Diagram, *diagram.CSI) Result {
		return Result{OK: true}
	}); err == nil {
		t.Fatal("registering into the frozen default registry must fail")
	}
	for _, name := range []string{PredCSIBoundary, PredCollapseIrreversible, PredNoCycles, PredCompartmentTransitions} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("built-in predicate %s not registered", name)
		}
	}
}

func TestEvaluateHardAndSoft(t *testing.T) {
	d := couplingDiagram(t)
	csi := diagram.NewCSI("csi1", nil, []diagram.DOFPair{{"Other", "Other"}})
	constraints := []diagram.Constraint{
		{ID: "hard_csi", Type: diagram.ConstraintHard, Predicate: PredCSIBoundary},
		{ID: "soft_csi", Type: diagram.ConstraintSoft, Predicate: PredCSIBoundary},
	}
	errs, warns := Evaluate(constraints, &diagram.State{}, d, csi)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one hard failure", errs)
	}
	if len(warns) != 1 {
		t.Fatalf("warnings = %v, want one soft failure", warns)
	}
}

func TestEvaluateUnknownPredicate(t *testing.T) {
	d := couplingDiagram(t)
	constraints := []diagram.Constraint{{ID: "c1", Type: diagram.ConstraintHard, Predicate: "no_such"}}

	errs, warns := Evaluate(constraints, &diagram.State{}, d, testCSI())
	if len(errs) != 0 || len(warns) != 1 {
		t.Errorf("lenient mode: errs=%v warns=%v, want warning only", errs, warns)
	}

	errs, warns = EvaluateWith(Options{Strict: true}, constraints, &diagram.State{}, d, testCSI())
	if len(errs) != 1 || len(warns) != 0 {
		t.Errorf("strict mode: errs=%v warns=%v, want error only", errs, warns)
	}
}

func TestAssignLabelsAllAdmissible(t *testing.T) {
	// Scenario: no applicable constraint violations labels every
	// element I, explicitly.
	d := couplingDiagram(t)
	st := AssignLabels(d, baseConstraints(), nil, testCSI())
	for _, id := range []string{"n1", "n2", "e1"} {
		if st.Labels[id] != diagram.LabelIs {
			t.Errorf("label[%s] = %s, want I", id, st.Labels[id])
		}
	}
	if st.DiagramID != "d1" || st.CSIID != "csi1" {
		t.Errorf("state not bound to diagram and csi: %+v", st)
	}
}

func TestAssignLabelsNoConstraints(t *testing.T) {
	d := couplingDiagram(t)
	st := AssignLabels(d, nil, nil, testCSI())
	for id, l := range st.Labels {
		if l != diagram.LabelIs {
			t.Errorf("label[%s] = %s, want I with no constraints", id, l)
		}
	}
}

func TestAssignLabelsElementViolation(t *testing.T) {
	// Edge e1 crosses a pair the CSI does not admit: the edge is N,
	// the nodes stay I.
	d := couplingDiagram(t)
	csi := diagram.NewCSI("csi1", nil, []diagram.DOFPair{{"Gradient", "Freedom"}})
	constraints := []diagram.Constraint{
		{ID: "c_csi", Type: diagram.ConstraintHard, Predicate: PredCSIBoundary},
	}
	st := AssignLabels(d, constraints, nil, csi)
	if st.Labels["e1"] != diagram.LabelNot {
		t.Errorf("label[e1] = %s, want N", st.Labels["e1"])
	}
	if st.Labels["n1"] != diagram.LabelIs || st.Labels["n2"] != diagram.LabelIs {
		t.Errorf("node labels = %s %s, want I I", st.Labels["n1"], st.Labels["n2"])
	}
}

func TestAssignLabelsSoftMarksUnknown(t *testing.T) {
	d := couplingDiagram(t)
	csi := diagram.NewCSI("csi1", nil, []diagram.DOFPair{{"Gradient", "Freedom"}})
	constraints := []diagram.Constraint{
		{ID: "c_csi", Type: diagram.ConstraintSoft, Predicate: PredCSIBoundary},
	}
	st := AssignLabels(d, constraints, nil, csi)
	if st.Labels["e1"] != diagram.LabelUnknown {
		t.Errorf("label[e1] = %s, want U for soft failure", st.Labels["e1"])
	}
}

func TestAssignLabelsEdgeDerivesFromEndpoints(t *testing.T) {
	d, err := diagram.New("d1", "", []diagram.Node{
		{ID: "n1", Op: diagram.OpCollapse, Irreversible: true, Meta: &diagram.NodeMeta{AtomArgs: []string{"x"}}},
		{ID: "n2", Op: diagram.OpTransport, Inputs: []string{"n1"}}, // missing target compartment
	}, []diagram.Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "arg"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	constraints := []diagram.Constraint{
		{ID: "c_t", Type: diagram.ConstraintHard, Predicate: PredCompartmentTransitions},
	}
	st := AssignLabels(d, constraints, nil, testCSI())
	if st.Labels["n2"] != diagram.LabelNot {
		t.Fatalf("label[n2] = %s, want N", st.Labels["n2"])
	}
	if st.Labels["e1"] != diagram.LabelNot {
		t.Errorf("edge into an N endpoint must derive N, got %s", st.Labels["e1"])
	}
}

func TestAssignLabelsDeterministic(t *testing.T) {
	d := couplingDiagram(t)
	first := AssignLabels(d, baseConstraints(), nil, testCSI())
	for i := 0; i < 10; i++ {
		again := AssignLabels(d, baseConstraints(), nil, testCSI())
		if !reflect.DeepEqual(first.Labels, again.Labels) {
			t.Fatalf("labeling not deterministic: %v vs %v", first.Labels, again.Labels)
		}
	}
}

func TestAssignLabelsDoesNotMutateBase(t *testing.T) {
	d := couplingDiagram(t)
	base := &diagram.State{ID: "s1", Labels: map[string]diagram.Label{"stale": diagram.LabelNot}}
	out := AssignLabels(d, baseConstraints(), base, testCSI())
	if base.Labels["stale"] != diagram.LabelNot {
		t.Error("base state mutated")
	}
	if _, carried := out.Labels["stale"]; carried {
		t.Error("stale labels carried over; labeling must be wholesale")
	}
}

func TestAuthorizeUninitializedLabels(t *testing.T) {
	d := couplingDiagram(t)
	rule := diagram.Rule{ID: "r1", Preconditions: []string{PreAdmissible}}
	_, err := Authorize(baseConstraints(), &diagram.State{ID: "s1"}, d, testCSI(), rule, nil)
	if !errors.Is(err, diagram.ErrUninitializedLabels) {
		t.Fatalf("err = %v, want ErrUninitializedLabels", err)
	}
}

func TestAuthorizeGranted(t *testing.T) {
	d := couplingDiagram(t)
	st := AssignLabels(d, baseConstraints(), nil, testCSI())
	rule := diagram.Rule{ID: "r1", Preconditions: []string{PreAdmissible, PreNoHardConflict}}
	dec, err := Authorize(baseConstraints(), st, d, testCSI(), rule, nil)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !dec.Authorized {
		t.Fatalf("denied: %+v", dec)
	}
}

func TestAuthorizeDeniedByHardConstraint(t *testing.T) {
	d := couplingDiagram(t)
	csi := diagram.NewCSI("csi1", nil, []diagram.DOFPair{{"Other", "Other"}})
	constraints := []diagram.Constraint{
		{ID: "c_csi", Type: diagram.ConstraintHard, Predicate: PredCSIBoundary},
	}
	st := AssignLabels(d, constraints, nil, csi)
	dec, err := Authorize(constraints, st, d, csi, diagram.Rule{ID: "r1"}, nil)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if dec.Authorized || len(dec.Errors) == 0 {
		t.Fatalf("want denial with errors, got %+v", dec)
	}
	ct, _ := ClassifyDenial(dec)
	if ct != ConflictHardViolation {
		t.Errorf("classified %s, want hard_violation", ct)
	}
}

func TestAuthorizeAdmissibleChecksTouchedOnly(t *testing.T) {
	d := couplingDiagram(t)
	st := AssignLabels(d, nil, nil, testCSI())
	st.Labels["e1"] = diagram.LabelNot
	rule := diagram.Rule{ID: "r1", Preconditions: []string{PreAdmissible}}

	// Match touching only n1 is unaffected by the excluded edge.
	dec, err := Authorize(nil, st, d, testCSI(), rule, []string{"n1"})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !dec.Authorized {
		t.Fatalf("want authorization for untouched exclusion, got %+v", dec)
	}

	// Match touching the excluded edge is denied as interference.
	dec, err = Authorize(nil, st, d, testCSI(), rule, []string{"n1", "e1"})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if dec.Authorized {
		t.Fatal("want denial when touched element is N")
	}
	ct, det := ClassifyDenial(dec)
	if ct != ConflictDOFInterference {
		t.Errorf("classified %s, want dof_interference", ct)
	}
	if len(det.Elements) != 1 || det.Elements[0] != "e1" {
		t.Errorf("conflict elements = %v, want [e1]", det.Elements)
	}
}

func TestProposalLifecycle(t *testing.T) {
	d := couplingDiagram(t)
	st := AssignLabels(d, baseConstraints(), nil, testCSI())

	p := NewProposal("prop1", diagram.Rule{ID: "r1"}, nil)
	if p.Phase() != PhaseProposed {
		t.Fatalf("phase = %s, want proposed", p.Phase())
	}
	dec, err := p.Evaluate(Options{}, baseConstraints(), st, d, testCSI())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !dec.Authorized || p.Phase() != PhaseAuthorized {
		t.Fatalf("phase = %s after %+v, want authorized", p.Phase(), dec)
	}
	if _, err := p.Evaluate(Options{}, baseConstraints(), st, d, testCSI()); err == nil {
		t.Error("re-evaluating a settled proposal must fail")
	}
	if _, _, err := p.ResolveDenial(st); err == nil {
		t.Error("resolving an authorized proposal must fail")
	}
}

func TestProposalDenialResolvesOnce(t *testing.T) {
	d := couplingDiagram(t)
	st := AssignLabels(d, nil, nil, testCSI())
	st.Labels["n1"] = diagram.LabelNot

	p := NewProposal("prop1", diagram.Rule{ID: "r1", Preconditions: []string{PreAdmissible}}, []string{"n1"})
	dec, err := p.Evaluate(Options{}, nil, st, d, testCSI())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if dec.Authorized {
		t.Fatal("want denial")
	}
	next, res, err := p.ResolveDenial(st)
	if err != nil {
		t.Fatalf("ResolveDenial: %v", err)
	}
	if res.Action != ActionPartition {
		t.Errorf("action = %s, want partition for interference", res.Action)
	}
	if next == st {
		t.Error("resolution returned the input state")
	}
	if _, _, err := p.ResolveDenial(st); err == nil {
		t.Error("outcome must be terminal; second resolution must fail")
	}
}
