package rewrite

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

// Apply produces a new diagram with the match replaced by the rule's
// replacement. The input diagram is never modified. The result is
// re-validated structurally and checked for cycles; on any failure the
// original diagram is returned unchanged alongside the error.
func (m *Matcher) Apply(d *diagram.Diagram, match *Match) (*diagram.Diagram, error) {
	var next *diagram.Diagram
	var err error
	if m.rule.ExprForm() {
		next, err = m.applyExpr(d, match)
	} else {
		next, err = m.applyTopology(d, match)
	}
	if err != nil {
		return d, err
	}
	if next.HasCycle() {
		return d, ErrRewriteIntroducedCycle
	}
	return next, nil
}

// applyExpr removes the structurally consumed nodes, builds the
// replacement subtree with fresh ids, and redirects every outside
// reference to a removed node toward the replacement root.
func (m *Matcher) applyExpr(d *diagram.Diagram, match *Match) (*diagram.Diagram, error) {
	b := diagram.NewBuilder(d)

	bound := make(map[string]bool)
	for _, ops := range match.Vars {
		for _, op := range ops {
			if op.NodeID != "" {
				bound[op.NodeID] = true
			}
		}
	}
	removed := make(map[string]bool)
	for _, id := range match.MatchedNodes {
		if !bound[id] {
			removed[id] = true
		}
	}

	rootOps, err := buildReplacement(b, m.repl, match.Vars)
	if err != nil {
		return nil, fmt.Errorf("rewrite: rule %s: %w", m.rule.ID, err)
	}
	if len(rootOps) != 1 {
		return nil, fmt.Errorf("rewrite: rule %s replacement yields %d roots, want 1", m.rule.ID, len(rootOps))
	}
	newRoot := rootOps[0].NodeID
	if newRoot == "" {
		newRoot = atomNode(b, rootOps[0].Atom)
	}

	for _, e := range d.Edges {
		if removed[e.From] && !removed[e.To] {
			b.RewireEdge(e.ID, newRoot, "")
		}
	}
	for id := range removed {
		b.RewireInputs(id, newRoot)
		b.RemoveNode(id)
	}
	return b.Build()
}

// buildReplacement lowers a replacement expression inside the builder
// and returns the operand list it denotes. Variables expand to their
// bound operands; literal atoms stay atoms until an operator consumes
// them.
func buildReplacement(b *diagram.Builder, expr parser.Expr, vars map[string][]Operand) ([]Operand, error) {
	switch e := expr.(type) {
	case parser.Atom:
		if parser.IsVariable(e.Name) {
			ops, ok := vars[parser.VarName(e.Name)]
			if !ok {
				return nil, fmt.Errorf("unbound variable %q in replacement", e.Name)
			}
			return ops, nil
		}
		return []Operand{{Atom: e.Name}}, nil
	case parser.OpExpr:
		var operands []Operand
		for _, arg := range e.Args {
			ops, err := buildReplacement(b, arg, vars)
			if err != nil {
				return nil, err
			}
			operands = append(operands, ops...)
		}
		var inputs []string
		var atoms []string
		for _, op := range operands {
			if op.NodeID != "" {
				inputs = append(inputs, op.NodeID)
			} else {
				atoms = append(atoms, op.Atom)
			}
		}
		n := diagram.Node{ID: b.FreshNodeID("n"), Op: e.Op, Inputs: inputs}
		switch {
		case e.Op == diagram.OpProjection && len(inputs) == 0 && len(atoms) == 1:
			n.DOFRefs = atoms
		case (e.Op == diagram.OpPolarityPos || e.Op == diagram.OpPolarityNeg) && len(inputs) == 0:
			n.DOFRefs = atoms
		case len(atoms) > 0:
			n.Meta = &diagram.NodeMeta{AtomArgs: atoms}
		}
		if e.Op == diagram.OpCollapse {
			n.Irreversible = true
		}
		b.AddNode(n)
		for _, in := range inputs {
			b.AddEdge(diagram.Edge{ID: b.FreshEdgeID("e"), From: in, To: n.ID, Label: "arg"})
		}
		return []Operand{{NodeID: n.ID}}, nil
	}
	return nil, fmt.Errorf("unknown replacement expression %T", expr)
}

// atomNode materializes a bare atom as the projection shorthand node.
func atomNode(b *diagram.Builder, name string) string {
	n := diagram.Node{
		ID:      b.FreshNodeID("n"),
		Op:      diagram.OpProjection,
		DOFRefs: []string{name},
		Meta:    &diagram.NodeMeta{AtomOnly: true},
	}
	b.AddNode(n)
	return n.ID
}

// applyTopology removes the matched edges and instantiates the
// replacement edge patterns. Bound variables reuse their matched
// nodes; a bound variable under a different operator gets a wrapper
// node; an unbound variable becomes a fresh node of the side's
// operator.
func (m *Matcher) applyTopology(d *diagram.Diagram, match *Match) (*diagram.Diagram, error) {
	b := diagram.NewBuilder(d)
	for _, id := range match.MatchedEdges {
		b.RemoveEdge(id)
	}

	created := make(map[string]string) // var+op -> node id
	ensure := func(sp SidePattern) (string, error) {
		if ops, ok := match.Vars[sp.Var]; ok && len(ops) == 1 && ops[0].NodeID != "" {
			nodeID := ops[0].NodeID
			n, _ := d.Node(nodeID)
			if sp.Op == "" || n.Op == sp.Op {
				return nodeID, nil
			}
			key := sp.Var + "/" + string(sp.Op)
			if id, ok := created[key]; ok {
				return id, nil
			}
			wrap := diagram.Node{ID: b.FreshNodeID("n"), Op: sp.Op, Inputs: []string{nodeID}}
			if sp.Op == diagram.OpCollapse {
				wrap.Irreversible = true
			}
			b.AddNode(wrap)
			b.AddEdge(diagram.Edge{ID: b.FreshEdgeID("e"), From: nodeID, To: wrap.ID, Label: "arg"})
			created[key] = wrap.ID
			return wrap.ID, nil
		}
		if sp.Op == "" {
			return "", fmt.Errorf("rewrite: rule %s: replacement variable %q is unbound and has no operator", m.rule.ID, sp.Var)
		}
		key := sp.Var + "/" + string(sp.Op)
		if id, ok := created[key]; ok {
			return id, nil
		}
		n := diagram.Node{ID: b.FreshNodeID("n"), Op: sp.Op}
		if sp.Op == diagram.OpCollapse {
			n.Irreversible = true
		}
		b.AddNode(n)
		created[key] = n.ID
		return n.ID, nil
	}

	for _, pe := range m.replTopo.Edges {
		from, err := ensure(pe.Left)
		if err != nil {
			return nil, err
		}
		to, err := ensure(pe.Right)
		if err != nil {
			return nil, err
		}
		b.AddEdge(diagram.Edge{ID: b.FreshEdgeID("e"), From: from, To: to, Label: pe.Label})
	}
	return b.Build()
}
