// Package diagram implements the core data model for structured
// interaction diagrams: degrees of freedom, compartments, causal spheres
// of influence, operator nodes, labeled edges, and the immutable Diagram
// value they compose into. Diagrams are built once and thereafter only
// ever replaced wholesale; every transformation produces a new value.
package diagram

import (
	"sort"
	"strconv"
)

// NodeMeta carries optional per-node metadata.
type NodeMeta struct {
	TargetCompartment string   `json:"target_compartment,omitempty"` // Transport destination
	AtomArgs          []string `json:"atom_args,omitempty"`          // atoms recorded for non-projection operators
	AtomOnly          bool     `json:"atom_only,omitempty"`          // node synthesized from a bare atom
}

// Node is a single operator application in a diagram.
type Node struct {
	ID           string   `json:"id"`
	Op           Op       `json:"op"`
	DOFRefs      []string `json:"dof_refs,omitempty"`
	Inputs       []string `json:"inputs,omitempty"`
	Irreversible bool     `json:"irreversible,omitempty"` // always true for Collapse nodes
	Meta         *NodeMeta `json:"meta,omitempty"`
}

// Edge is a directed, labeled connection between two nodes.
type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Diagram is an immutable graph of operator nodes. Construct one with
// New; derive changed versions through a Builder. Callers must not
// mutate Nodes or Edges after construction.
type Diagram struct {
	ID            string `json:"id"`
	CompartmentID string `json:"compartment_id,omitempty"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`

	nodeIdx map[string]int
	edgeIdx map[string]int
	out     map[string][]string // node id -> successor node ids
	in      map[string][]string // node id -> predecessor node ids

	// Independent monotonic id counters, seeded from the highest
	// numeric suffix seen at construction and carried forward by
	// Builder so successive rewrites never reuse an id.
	nodeSeq int
	edgeSeq int
}

// New constructs a validated Diagram from node and edge sets. It fails
// with *StructuralError on empty or duplicate ids, dangling edge
// endpoints, dangling node inputs, unknown operators, and operand
// counts outside the operator's declared arity. Collapse nodes are
// forced irreversible.
func New(id, compartmentID string, nodes []Node, edges []Edge) (*Diagram, error) {
	d := &Diagram{
		ID:            id,
		CompartmentID: compartmentID,
		Nodes:         append([]Node(nil), nodes...),
		Edges:         append([]Edge(nil), edges...),
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Diagram) index() error {
	d.nodeIdx = make(map[string]int, len(d.Nodes))
	d.edgeIdx = make(map[string]int, len(d.Edges))
	d.out = make(map[string][]string)
	d.in = make(map[string][]string)

	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.ID == "" {
			return structuralf(CategoryMissingID, "", "node at index %d has no id", i)
		}
		if _, dup := d.nodeIdx[n.ID]; dup {
			return structuralf(CategoryDuplicateID, n.ID, "duplicate node id")
		}
		if !ValidOp(n.Op) {
			return structuralf(CategoryUnknownOp, n.ID, "unknown operator %q", string(n.Op))
		}
		if n.Op == OpCollapse {
			n.Irreversible = true
		}
		d.nodeIdx[n.ID] = i
		d.nodeSeq = bumpSeq(d.nodeSeq, n.ID)
	}

	for i := range d.Edges {
		e := &d.Edges[i]
		if e.ID == "" {
			return structuralf(CategoryMissingID, "", "edge at index %d has no id", i)
		}
		if _, dup := d.edgeIdx[e.ID]; dup {
			return structuralf(CategoryDuplicateID, e.ID, "duplicate edge id")
		}
		if _, ok := d.nodeIdx[e.From]; !ok {
			return structuralf(CategoryDanglingEdge, e.ID, "edge references missing 'from' node %q", e.From)
		}
		if _, ok := d.nodeIdx[e.To]; !ok {
			return structuralf(CategoryDanglingEdge, e.ID, "edge references missing 'to' node %q", e.To)
		}
		d.edgeIdx[e.ID] = i
		d.out[e.From] = append(d.out[e.From], e.To)
		d.in[e.To] = append(d.in[e.To], e.From)
		d.edgeSeq = bumpSeq(d.edgeSeq, e.ID)
	}

	for i := range d.Nodes {
		n := &d.Nodes[i]
		for _, input := range n.Inputs {
			if _, ok := d.nodeIdx[input]; !ok {
				return structuralf(CategoryDanglingInput, n.ID, "node references missing input %q", input)
			}
		}
		if err := CheckArity(n.Op, d.operandCount(n)); err != nil {
			return structuralf(CategoryArity, n.ID, "%v", err)
		}
	}
	return nil
}

// operandCount computes a node's effective operand count. Operands can
// arrive three ways: declared input node ids, incoming diagram edges
// (which duplicate inputs when both are present), and atom arguments
// (DOF references or recorded atoms). A zero count is a structural
// violation for every operator in the set.
func (d *Diagram) operandCount(n *Node) int {
	structural := len(n.Inputs)
	if incoming := len(d.in[n.ID]); incoming > structural {
		structural = incoming
	}
	count := structural + len(n.DOFRefs)
	if n.Meta != nil {
		count += len(n.Meta.AtomArgs)
	}
	return count
}

func bumpSeq(seq int, id string) int {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == len(id) {
		return seq
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil || n <= seq {
		return seq
	}
	return n
}

// Node returns the node with the given id.
func (d *Diagram) Node(id string) (Node, bool) {
	i, ok := d.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return d.Nodes[i], true
}

// Edge returns the edge with the given id.
func (d *Diagram) Edge(id string) (Edge, bool) {
	i, ok := d.edgeIdx[id]
	if !ok {
		return Edge{}, false
	}
	return d.Edges[i], true
}

// HasNode reports whether a node with the given id exists.
func (d *Diagram) HasNode(id string) bool {
	_, ok := d.nodeIdx[id]
	return ok
}

// Successors returns the ids of nodes reachable from id over one edge.
func (d *Diagram) Successors(id string) []string {
	return append([]string(nil), d.out[id]...)
}

// Predecessors returns the ids of nodes with an edge into id.
func (d *Diagram) Predecessors(id string) []string {
	return append([]string(nil), d.in[id]...)
}

// Neighbors returns the deduplicated union of predecessors and
// successors of id, sorted for deterministic iteration.
func (d *Diagram) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range d.out[id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range d.in[id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// NodesByOp returns all nodes with the given operator, in diagram order.
func (d *Diagram) NodesByOp(op Op) []Node {
	var out []Node
	for _, n := range d.Nodes {
		if n.Op == op {
			out = append(out, n)
		}
	}
	return out
}

// ElementIDs returns every node and edge id in the diagram.
func (d *Diagram) ElementIDs() []string {
	ids := make([]string, 0, len(d.Nodes)+len(d.Edges))
	for _, n := range d.Nodes {
		ids = append(ids, n.ID)
	}
	for _, e := range d.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}
