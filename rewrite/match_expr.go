package rewrite

import (
	"sort"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/parser"
)

// nodeOperands lists a node's operands in canonical order: input nodes
// first, then DOF references, then recorded atom arguments.
func nodeOperands(n diagram.Node) []Operand {
	out := make([]Operand, 0, len(n.Inputs)+len(n.DOFRefs))
	for _, in := range n.Inputs {
		out = append(out, Operand{NodeID: in})
	}
	for _, ref := range n.DOFRefs {
		out = append(out, Operand{Atom: ref})
	}
	if n.Meta != nil {
		for _, a := range n.Meta.AtomArgs {
			out = append(out, Operand{Atom: a})
		}
	}
	return out
}

// exprMatchState accumulates bindings and structurally consumed nodes
// during one expression match attempt.
type exprMatchState struct {
	d        *diagram.Diagram
	vars     map[string][]Operand
	consumed map[string]bool
}

func operandsEqual(a, b []Operand) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

func (s *exprMatchState) bind(name string, ops []Operand) bool {
	if prev, ok := s.vars[name]; ok {
		return operandsEqual(prev, ops)
	}
	s.vars[name] = ops
	return true
}

// matchOperand matches a single pattern expression against one operand
// position. Variables bind the operand as-is; literal atoms match
// either a literal operand or the projection-node shorthand for one;
// operator expressions require a node operand of the same operator.
func (s *exprMatchState) matchOperand(pat parser.Expr, target Operand) bool {
	switch p := pat.(type) {
	case parser.Atom:
		if parser.IsVariable(p.Name) {
			return s.bind(parser.VarName(p.Name), []Operand{target})
		}
		if target.Atom != "" {
			return target.Atom == p.Name
		}
		n, ok := s.d.Node(target.NodeID)
		if !ok {
			return false
		}
		if n.Op == diagram.OpProjection && len(n.Inputs) == 0 &&
			len(n.DOFRefs) == 1 && n.DOFRefs[0] == p.Name {
			s.consumed[n.ID] = true
			return true
		}
		return false
	case parser.OpExpr:
		if target.NodeID == "" {
			return false
		}
		n, ok := s.d.Node(target.NodeID)
		if !ok || n.Op != p.Op {
			return false
		}
		return s.matchNode(p, n)
	}
	return false
}

// matchNode matches an operator pattern against a node's operand list.
// Arguments consume operands positionally; a trailing variable absorbs
// every remaining operand. The whole operand list must be accounted
// for.
func (s *exprMatchState) matchNode(p parser.OpExpr, n diagram.Node) bool {
	ops := nodeOperands(n)
	s.consumed[n.ID] = true
	for i, arg := range p.Args {
		last := i == len(p.Args)-1
		if atom, ok := arg.(parser.Atom); ok && parser.IsVariable(atom.Name) && last {
			return s.bind(parser.VarName(atom.Name), ops[i:])
		}
		if i >= len(ops) {
			return false
		}
		if !s.matchOperand(arg, ops[i]) {
			return false
		}
	}
	return len(p.Args) == len(ops)
}

// findExprMatch tries each node as the pattern root, in diagram order,
// skipping roots and consumed elements in the forbidden set.
func (m *Matcher) findExprMatch(d *diagram.Diagram, forbidden map[string]bool) *Match {
	root, ok := m.pattern.(parser.OpExpr)
	if !ok {
		// A bare-atom pattern matches a projection shorthand node.
		return m.findAtomMatch(d, forbidden)
	}
	for _, n := range d.Nodes {
		if forbidden[n.ID] || n.Op != root.Op {
			continue
		}
		s := &exprMatchState{
			d:        d,
			vars:     make(map[string][]Operand),
			consumed: make(map[string]bool),
		}
		if !s.matchNode(root, n) {
			continue
		}
		if s.anyForbidden(forbidden) {
			continue
		}
		return s.toMatch(m.rule.ID, n.ID)
	}
	return nil
}

func (m *Matcher) findAtomMatch(d *diagram.Diagram, forbidden map[string]bool) *Match {
	atom, ok := m.pattern.(parser.Atom)
	if !ok || parser.IsVariable(atom.Name) {
		return nil
	}
	for _, n := range d.Nodes {
		if forbidden[n.ID] {
			continue
		}
		if n.Op == diagram.OpProjection && len(n.Inputs) == 0 &&
			len(n.DOFRefs) == 1 && n.DOFRefs[0] == atom.Name {
			return &Match{
				RuleID:       m.rule.ID,
				Vars:         map[string][]Operand{},
				Root:         n.ID,
				MatchedNodes: []string{n.ID},
				expr:         true,
			}
		}
	}
	return nil
}

func (s *exprMatchState) anyForbidden(forbidden map[string]bool) bool {
	for id := range s.consumed {
		if forbidden[id] {
			return true
		}
	}
	return false
}

func (s *exprMatchState) toMatch(ruleID, root string) *Match {
	nodes := make([]string, 0, len(s.consumed))
	for id := range s.consumed {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	var edges []string
	for _, e := range s.d.Edges {
		if s.consumed[e.To] && s.consumed[e.From] {
			edges = append(edges, e.ID)
		}
	}
	return &Match{
		RuleID:       ruleID,
		Vars:         s.vars,
		Root:         root,
		MatchedNodes: nodes,
		MatchedEdges: edges,
		expr:         true,
	}
}
