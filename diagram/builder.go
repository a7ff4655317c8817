package diagram

import "fmt"

// Builder derives a new Diagram from an existing one. It copies the
// source's nodes, edges, and id counters, accumulates additions and
// removals, and validates the result on Build. The source diagram is
// never touched.
type Builder struct {
	id            string
	compartmentID string
	nodes         []Node
	edges         []Edge
	removedNodes  map[string]bool
	removedEdges  map[string]bool
	nodeSeq       int
	edgeSeq       int
}

// NewBuilder starts a Builder seeded from d. Node input slices are
// copied so rewiring never reaches back into the source diagram.
func NewBuilder(d *Diagram) *Builder {
	nodes := append([]Node(nil), d.Nodes...)
	for i := range nodes {
		nodes[i].Inputs = append([]string(nil), nodes[i].Inputs...)
	}
	return &Builder{
		id:            d.ID,
		compartmentID: d.CompartmentID,
		nodes:         nodes,
		edges:         append([]Edge(nil), d.Edges...),
		removedNodes:  make(map[string]bool),
		removedEdges:  make(map[string]bool),
		nodeSeq:       d.nodeSeq,
		edgeSeq:       d.edgeSeq,
	}
}

// FreshNodeID allocates the next node id from the node counter.
// The counter is independent of the edge counter and monotonic across
// every diagram derived from the same lineage.
func (b *Builder) FreshNodeID(prefix string) string {
	b.nodeSeq++
	return fmt.Sprintf("%s%d", prefix, b.nodeSeq)
}

// FreshEdgeID allocates the next edge id from the edge counter.
func (b *Builder) FreshEdgeID(prefix string) string {
	b.edgeSeq++
	return fmt.Sprintf("%s%d", prefix, b.edgeSeq)
}

// AddNode appends a node.
func (b *Builder) AddNode(n Node) {
	b.nodes = append(b.nodes, n)
}

// AddEdge appends an edge.
func (b *Builder) AddEdge(e Edge) {
	b.edges = append(b.edges, e)
}

// RemoveNode marks a node id for removal.
func (b *Builder) RemoveNode(id string) {
	b.removedNodes[id] = true
}

// RemoveEdge marks an edge id for removal.
func (b *Builder) RemoveEdge(id string) {
	b.removedEdges[id] = true
}

// Removed reports whether the node id is marked for removal.
func (b *Builder) Removed(id string) bool {
	return b.removedNodes[id]
}

// Nodes returns the current working node set, removals excluded.
func (b *Builder) Nodes() []Node {
	out := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		if !b.removedNodes[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// RewireEdge replaces an edge's endpoint references in place within the
// working set. Used when edges pointing into removed nodes must be
// redirected toward replacement nodes.
func (b *Builder) RewireEdge(edgeID, newFrom, newTo string) {
	for i := range b.edges {
		if b.edges[i].ID != edgeID {
			continue
		}
		if newFrom != "" {
			b.edges[i].From = newFrom
		}
		if newTo != "" {
			b.edges[i].To = newTo
		}
		return
	}
}

// RewireInputs replaces every input reference to oldID across the
// working node set with newID.
func (b *Builder) RewireInputs(oldID, newID string) {
	for i := range b.nodes {
		for j, in := range b.nodes[i].Inputs {
			if in == oldID {
				b.nodes[i].Inputs[j] = newID
			}
		}
	}
}

// Build assembles and validates the new Diagram. Removed nodes are
// dropped along with any remaining edge still referencing them; inputs
// referencing removed nodes are pruned. The id counters carry over so
// later builders continue the same sequences.
func (b *Builder) Build() (*Diagram, error) {
	nodes := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		if b.removedNodes[n.ID] {
			continue
		}
		if len(n.Inputs) > 0 {
			kept := make([]string, 0, len(n.Inputs))
			for _, in := range n.Inputs {
				if !b.removedNodes[in] {
					kept = append(kept, in)
				}
			}
			n.Inputs = kept
		}
		nodes = append(nodes, n)
	}
	edges := make([]Edge, 0, len(b.edges))
	for _, e := range b.edges {
		if b.removedEdges[e.ID] || b.removedNodes[e.From] || b.removedNodes[e.To] {
			continue
		}
		edges = append(edges, e)
	}

	d := &Diagram{
		ID:            b.id,
		CompartmentID: b.compartmentID,
		Nodes:         nodes,
		Edges:         edges,
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	if d.nodeSeq < b.nodeSeq {
		d.nodeSeq = b.nodeSeq
	}
	if d.edgeSeq < b.edgeSeq {
		d.edgeSeq = b.edgeSeq
	}
	return d, nil
}
