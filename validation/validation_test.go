package validation

import (
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

func goodPackage(t *testing.T) *parser.Package {
	t.Helper()
	d, err := parser.ParseDiagram("d1", "C(P(Freedom), P(Gradient))")
	if err != nil {
		t.Fatalf("ParseDiagram: %v", err)
	}
	return &parser.Package{
		Name: "demo",
		DOFs: []diagram.DOF{
			{ID: "Freedom", Group: "g1"},
			{ID: "Gradient", Group: "g1"},
		},
		Compartments: []diagram.Compartment{
			{ID: "inner", Index: 0},
			{ID: "outer", Index: 1},
		},
		CSIs: []*diagram.CSI{
			diagram.NewCSI("csi1", []string{"Freedom", "Gradient"}, nil),
		},
		Diagrams: []*diagram.Diagram{d},
		States: []*diagram.State{
			{ID: "s1", DiagramID: "d1", CSIID: "csi1"},
		},
		Constraints: []diagram.Constraint{
			{ID: "c1", Type: diagram.ConstraintHard, Predicate: "no_cycles"},
		},
		Rules: []diagram.Rule{
			{ID: "r1", PatternExpr: "C(x)", ReplacementExpr: "O(C(x))"},
		},
	}
}

func issueCategories(issues []Issue) map[string]int {
	out := make(map[string]int)
	for _, i := range issues {
		out[i.Category]++
	}
	return out
}

func TestValidatePassesOnConsistentPackage(t *testing.T) {
	res := NewValidator(goodPackage(t)).Validate()
	if !res.Valid {
		t.Fatalf("valid package rejected: %+v", res.Errors)
	}
	if res.Summary.Diagrams != 1 || res.Summary.Rules != 1 {
		t.Errorf("summary = %+v", res.Summary)
	}
}

func TestValidateFindsCrossReferenceErrors(t *testing.T) {
	pkg := goodPackage(t)
	pkg.States = append(pkg.States, &diagram.State{ID: "s2", DiagramID: "nope", CSIID: "csi1"})
	pkg.CSIs = append(pkg.CSIs, diagram.NewCSI("csi2", []string{"Ghost"}, nil))
	pkg.Constraints = append(pkg.Constraints, diagram.Constraint{ID: "c2", Type: "hard", Predicate: "made_up"})
	pkg.Rules = append(pkg.Rules, diagram.Rule{ID: "r2", Pattern: "not a pattern", Replacement: "also not"})

	res := NewValidator(pkg).Validate()
	if res.Valid {
		t.Fatal("inconsistent package accepted")
	}
	cats := issueCategories(res.Errors)
	for _, want := range []string{"missing_reference", "invalid_rule"} {
		if cats[want] == 0 {
			t.Errorf("no %s error reported; got %v", want, cats)
		}
	}
	warn := issueCategories(res.Warnings)
	if warn["unknown_predicate"] == 0 {
		t.Errorf("no unknown_predicate warning; got %v", warn)
	}
}

func TestValidateDuplicateCompartmentIndex(t *testing.T) {
	pkg := goodPackage(t)
	pkg.Compartments = append(pkg.Compartments, diagram.Compartment{ID: "extra", Index: 1})
	res := NewValidator(pkg).Validate()
	if res.Valid {
		t.Fatal("duplicate compartment index accepted")
	}
	if issueCategories(res.Errors)["duplicate_index"] == 0 {
		t.Errorf("no duplicate_index error; got %+v", res.Errors)
	}
}

func TestValidateDOFOutsideCSI(t *testing.T) {
	pkg := goodPackage(t)
	pkg.CSIs[0] = diagram.NewCSI("csi1", []string{"Freedom"}, nil)
	res := NewValidator(pkg).Validate()
	if res.Valid {
		t.Fatal("out-of-sphere DOF accepted")
	}
	if issueCategories(res.Errors)["dof_outside_csi"] == 0 {
		t.Errorf("no dof_outside_csi error; got %+v", res.Errors)
	}
}

func TestValidateIdentityRuleIsInfoOnly(t *testing.T) {
	pkg := goodPackage(t)
	pkg.Rules = []diagram.Rule{{ID: "r1", PatternExpr: "C(x)", ReplacementExpr: "C(x)"}}
	res := NewValidator(pkg).Validate()
	if !res.Valid {
		t.Fatalf("identity rule rejected: %+v", res.Errors)
	}
	if issueCategories(res.Info)["identity_rule"] == 0 {
		t.Errorf("no identity_rule info; got %+v", res.Info)
	}
}

func TestProbeReportsExcludedElements(t *testing.T) {
	pkg := goodPackage(t)
	// An edge between two DOF-bearing nodes whose pair the sphere
	// does not admit gets excluded by the boundary predicate.
	nodes := []diagram.Node{
		{ID: "n1", Op: diagram.OpProjection, DOFRefs: []string{"Freedom"}},
		{ID: "n2", Op: diagram.OpPolarityPos, DOFRefs: []string{"Gradient"}},
	}
	edges := []diagram.Edge{{ID: "e1", From: "n1", To: "n2", Label: "arg"}}
	d, err := diagram.New("d1", "", nodes, edges)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pkg.Diagrams = []*diagram.Diagram{d}
	pkg.CSIs[0] = diagram.NewCSI("csi1", []string{"Freedom", "Gradient"},
		[]diagram.DOFPair{{"Freedom", "Freedom"}})
	pkg.Constraints = append(pkg.Constraints,
		diagram.Constraint{ID: "c2", Type: diagram.ConstraintHard, Predicate: "no_cross_csi_interaction"})

	res := NewValidator(pkg).ValidateWithLabels()
	if issueCategories(res.Warnings)["excluded_elements"] == 0 {
		t.Errorf("no excluded_elements warning; warnings = %+v", res.Warnings)
	}
}
