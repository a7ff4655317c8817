package diagram

import (
	"errors"
	"testing"
)

func TestNewValidDiagram(t *testing.T) {
	d, err := New("d1", "c1", []Node{
		{ID: "n1", Op: OpProjection, DOFRefs: []string{"Freedom"}},
		{ID: "n2", Op: OpCollapse, Inputs: []string{"n1"}},
	}, []Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "arg"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.ID != "d1" || d.CompartmentID != "c1" {
		t.Errorf("unexpected ids: %q %q", d.ID, d.CompartmentID)
	}
	n, ok := d.Node("n2")
	if !ok {
		t.Fatal("node n2 missing")
	}
	if !n.Irreversible {
		t.Error("collapse node not forced irreversible")
	}
}

func TestNewStructuralErrors(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []Node
		edges    []Edge
		category string
	}{
		{
			name: "duplicate node id",
			nodes: []Node{
				{ID: "n1", Op: OpProjection, DOFRefs: []string{"A"}},
				{ID: "n1", Op: OpProjection, DOFRefs: []string{"B"}},
			},
			category: CategoryDuplicateID,
		},
		{
			name: "dangling edge",
			nodes: []Node{
				{ID: "n1", Op: OpProjection, DOFRefs: []string{"A"}},
			},
			edges:    []Edge{{ID: "e1", From: "n1", To: "missing", Label: "arg"}},
			category: CategoryDanglingEdge,
		},
		{
			name: "dangling input",
			nodes: []Node{
				{ID: "n1", Op: OpCollapse, Inputs: []string{"missing"}},
			},
			category: CategoryDanglingInput,
		},
		{
			name: "zero-argument operator",
			nodes: []Node{
				{ID: "n1", Op: OpProjection},
			},
			category: CategoryArity,
		},
		{
			name: "coupling above max arity",
			nodes: []Node{
				{ID: "a", Op: OpProjection, DOFRefs: []string{"A"}},
				{ID: "b", Op: OpProjection, DOFRefs: []string{"B"}},
				{ID: "c", Op: OpProjection, DOFRefs: []string{"C"}},
				{ID: "n1", Op: OpCoupling, Inputs: []string{"a", "b", "c"}},
			},
			category: CategoryArity,
		},
		{
			name: "unknown operator",
			nodes: []Node{
				{ID: "n1", Op: "X", DOFRefs: []string{"A"}},
			},
			category: CategoryUnknownOp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("d1", "", tt.nodes, tt.edges)
			if err == nil {
				t.Fatal("expected structural error, got nil")
			}
			var serr *StructuralError
			if !errors.As(err, &serr) {
				t.Fatalf("expected *StructuralError, got %T", err)
			}
			if serr.Category != tt.category {
				t.Errorf("category = %q, want %q", serr.Category, tt.category)
			}
		})
	}
}

func TestCouplingWithEdgeAndAtomOperand(t *testing.T) {
	// A Coupling node can receive one operand over an incoming edge and
	// one as a recorded atom; together they satisfy its arity of two.
	_, err := New("d1", "", []Node{
		{ID: "n1", Op: OpProjection, DOFRefs: []string{"Freedom"}},
		{ID: "n2", Op: OpCoupling, Meta: &NodeMeta{AtomArgs: []string{"Gradient"}}},
	}, []Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "Coupling"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestHasCycle(t *testing.T) {
	acyclic, err := New("d1", "", []Node{
		{ID: "n1", Op: OpProjection, DOFRefs: []string{"A"}},
		{ID: "n2", Op: OpCollapse, Inputs: []string{"n1"}},
		{ID: "n3", Op: OpTransport, Inputs: []string{"n2"}, Meta: &NodeMeta{TargetCompartment: "c2"}},
	}, []Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "arg"},
		{ID: "e2", From: "n2", To: "n3", Label: "arg"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if acyclic.HasCycle() {
		t.Error("acyclic diagram reported cyclic")
	}

	cyclic, err := New("d2", "", []Node{
		{ID: "n1", Op: OpCollapse, Inputs: []string{"n3"}},
		{ID: "n2", Op: OpCollapse, Inputs: []string{"n1"}},
		{ID: "n3", Op: OpCollapse, Inputs: []string{"n2"}},
	}, []Edge{
		{ID: "e1", From: "n1", To: "n2", Label: "arg"},
		{ID: "e2", From: "n2", To: "n3", Label: "arg"},
		{ID: "e3", From: "n3", To: "n1", Label: "arg"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !cyclic.HasCycle() {
		t.Error("cyclic diagram reported acyclic")
	}
}

func TestHasCycleLongChain(t *testing.T) {
	// Deep linear chain must not exhaust the stack: detection is
	// iterative.
	const n = 20000
	nodes := make([]Node, n)
	edges := make([]Edge, n-1)
	nodes[0] = Node{ID: "n0", Op: OpProjection, DOFRefs: []string{"A"}}
	for i := 1; i < n; i++ {
		prev := nodes[i-1].ID
		nodes[i] = Node{ID: "n" + itoa(i), Op: OpCollapse, Inputs: []string{prev}}
		edges[i-1] = Edge{ID: "e" + itoa(i), From: prev, To: nodes[i].ID, Label: "arg"}
	}
	d, err := New("chain", "", nodes, edges)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.HasCycle() {
		t.Error("chain reported cyclic")
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

func TestNeighbors(t *testing.T) {
	d, err := New("d1", "", []Node{
		{ID: "n1", Op: OpProjection, DOFRefs: []string{"A"}},
		{ID: "n2", Op: OpProjection, DOFRefs: []string{"B"}},
		{ID: "n3", Op: OpCoupling, Inputs: []string{"n1", "n2"}},
	}, []Edge{
		{ID: "e1", From: "n1", To: "n3", Label: "arg"},
		{ID: "e2", From: "n2", To: "n3", Label: "arg"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := d.Neighbors("n3")
	if len(got) != 2 || got[0] != "n1" || got[1] != "n2" {
		t.Errorf("Neighbors(n3) = %v, want [n1 n2]", got)
	}
	if succ := d.Successors("n1"); len(succ) != 1 || succ[0] != "n3" {
		t.Errorf("Successors(n1) = %v", succ)
	}
}

func TestBuilderFreshIDsMonotonic(t *testing.T) {
	d, err := New("d1", "", []Node{
		{ID: "n7", Op: OpProjection, DOFRefs: []string{"A"}},
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b := NewBuilder(d)
	id := b.FreshNodeID("n")
	if id != "n8" {
		t.Errorf("FreshNodeID = %q, want n8 (seeded past existing ids)", id)
	}
	// Edge counter is independent of the node counter.
	if eid := b.FreshEdgeID("e"); eid != "e1" {
		t.Errorf("FreshEdgeID = %q, want e1", eid)
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	s := &State{
		ID:         "s1",
		Labels:     map[string]Label{"n1": LabelIs},
		Attenuated: []string{"c1"},
	}
	c := s.Clone()
	c.Labels["n1"] = LabelNot
	c.Attenuated = append(c.Attenuated, "c2")
	if s.Labels["n1"] != LabelIs {
		t.Error("clone shares label map with original")
	}
	if len(s.Attenuated) != 1 {
		t.Error("clone shares attenuated slice with original")
	}
}

func TestAppendLoopSampleCap(t *testing.T) {
	s := &State{ID: "s1", Labels: map[string]Label{}}
	for i := 0; i < MaxLoopHistory+10; i++ {
		s = s.AppendLoopSample(float64(i))
	}
	if len(s.LoopHistory) != MaxLoopHistory {
		t.Fatalf("history length = %d, want %d", len(s.LoopHistory), MaxLoopHistory)
	}
	if s.LoopHistory[0] != 10 {
		t.Errorf("oldest retained sample = %v, want 10", s.LoopHistory[0])
	}
}
