package parser

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
)

// ExprToDiagram lowers a parsed expression into a validated diagram.
// Operator applications become nodes wired by "arg" edges in argument
// order. Atom arguments fold onto the node itself: a projection with a
// single atom, or a polarity node with only atoms, records them as DOF
// references; other operators keep them as literal arguments. Collapse
// nodes are marked irreversible. A bare top-level atom becomes a
// projection node flagged atom-only so export can reverse the shorthand.
func ExprToDiagram(id string, expr Expr) (*diagram.Diagram, error) {
	b := &diagramBuilder{}
	root, err := b.lower(expr)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return nil, parseErrf(0, 0, "expression has no root node")
	}
	return diagram.New(id, "", b.nodes, b.edges)
}

type diagramBuilder struct {
	nodes   []diagram.Node
	edges   []diagram.Edge
	nodeSeq int
	edgeSeq int
}

func (b *diagramBuilder) nextNode() string {
	b.nodeSeq++
	return fmt.Sprintf("n%d", b.nodeSeq)
}

func (b *diagramBuilder) nextEdge() string {
	b.edgeSeq++
	return fmt.Sprintf("e%d", b.edgeSeq)
}

// lower returns the node id produced for expr. Atoms at the top level
// produce a shorthand Purpose node; atoms in argument position are
// handled by the parent and never reach here.
func (b *diagramBuilder) lower(expr Expr) (string, error) {
	switch e := expr.(type) {
	case Atom:
		id := b.nextNode()
		b.nodes = append(b.nodes, diagram.Node{
			ID:      id,
			Op:      diagram.OpProjection,
			DOFRefs: []string{e.Name},
			Meta:    &diagram.NodeMeta{AtomOnly: true},
		})
		return id, nil
	case OpExpr:
		return b.lowerOp(e)
	default:
		return "", parseErrf(0, 0, "unknown expression kind %T", expr)
	}
}

func (b *diagramBuilder) lowerOp(e OpExpr) (string, error) {
	var atoms []string
	var inputs []string
	for _, arg := range e.Args {
		if atom, ok := arg.(Atom); ok {
			atoms = append(atoms, atom.Name)
			continue
		}
		child, err := b.lower(arg)
		if err != nil {
			return "", err
		}
		inputs = append(inputs, child)
	}
	n := diagram.Node{ID: b.nextNode(), Op: e.Op, Inputs: inputs}
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
	b.nodes = append(b.nodes, n)
	for _, in := range inputs {
		b.edges = append(b.edges, diagram.Edge{
			ID:    b.nextEdge(),
			From:  in,
			To:    n.ID,
			Label: "arg",
		})
	}
	return n.ID, nil
}

// ParseDiagram parses an expression and lowers it in one step.
func ParseDiagram(id, text string) (*diagram.Diagram, error) {
	expr, err := ParseExpression(text)
	if err != nil {
		return nil, err
	}
	return ExprToDiagram(id, expr)
}

// DiagramToExpr reconstructs the expression form of a single-rooted
// diagram. The root is the unique node with no outgoing edges.
func DiagramToExpr(d *diagram.Diagram) (Expr, error) {
	var roots []string
	for _, n := range d.Nodes {
		if len(d.Successors(n.ID)) == 0 {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) != 1 {
		return nil, fmt.Errorf("parser: diagram %s has %d roots, expression export needs exactly one", d.ID, len(roots))
	}
	return exportNode(d, roots[0])
}

func exportNode(d *diagram.Diagram, id string) (Expr, error) {
	n, ok := d.Node(id)
	if !ok {
		return nil, fmt.Errorf("parser: unknown node %s", id)
	}
	if n.Meta != nil && n.Meta.AtomOnly && len(n.DOFRefs) == 1 {
		return Atom{Name: n.DOFRefs[0]}, nil
	}
	var args []Expr
	for _, in := range n.Inputs {
		child, err := exportNode(d, in)
		if err != nil {
			return nil, err
		}
		args = append(args, child)
	}
	for _, ref := range n.DOFRefs {
		args = append(args, Atom{Name: ref})
	}
	if n.Meta != nil {
		for _, a := range n.Meta.AtomArgs {
			args = append(args, Atom{Name: a})
		}
	}
	return OpExpr{Op: n.Op, Args: args}, nil
}
