package crf

import "github.com/sid-xyz/go-sid/diagram"

// AssignLabels classifies every node and edge of the diagram with a
// ternary label and returns a new State carrying the labeling. An
// element implicated by a failed hard constraint is N; implicated only
// by failed soft constraints, U; otherwise I. A failed constraint that
// implicates no particular element (a whole-diagram verdict such as
// acyclicity) marks every element. Edge labels additionally derive
// from their endpoints: an edge is never better than its worst
// endpoint.
//
// Labels are recomputed wholesale on every call. The base state is
// cloned, never mutated; pass nil to start from an empty state bound
// to the diagram and CSI.
func AssignLabels(d *diagram.Diagram, constraints []diagram.Constraint, base *diagram.State, csi *diagram.CSI) *diagram.State {
	return AssignLabelsWith(Options{}, d, constraints, base, csi)
}

// AssignLabelsWith is AssignLabels under explicit options.
func AssignLabelsWith(opts Options, d *diagram.Diagram, constraints []diagram.Constraint, base *diagram.State, csi *diagram.CSI) *diagram.State {
	labels := make(map[string]diagram.Label, len(d.Nodes)+len(d.Edges))
	for _, id := range d.ElementIDs() {
		labels[id] = diagram.LabelIs
	}

	p := newPass(opts, base, d, csi)
	for _, c := range constraints {
		if c.Predicate == "" {
			continue
		}
		r, found := p.run(c.Predicate)
		if !found || r.OK {
			continue
		}
		mark := diagram.LabelUnknown
		if c.Hard() {
			mark = diagram.LabelNot
		}
		if len(r.Violating) == 0 {
			for id := range labels {
				demote(labels, id, mark)
			}
			continue
		}
		for _, id := range r.Violating {
			if _, known := labels[id]; known {
				demote(labels, id, mark)
			}
		}
	}

	// Edges inherit the worst of their endpoint labels.
	for _, e := range d.Edges {
		demote(labels, e.ID, labels[e.From])
		demote(labels, e.ID, labels[e.To])
	}

	out := stateFor(base, d, csi)
	out.Labels = labels
	return out
}

// demote lowers an element's label, never raises it: N < U < I.
func demote(labels map[string]diagram.Label, id string, to diagram.Label) {
	cur := labels[id]
	if cur == diagram.LabelNot {
		return
	}
	if to == diagram.LabelNot || (to == diagram.LabelUnknown && cur == diagram.LabelIs) {
		labels[id] = to
	}
}

func stateFor(base *diagram.State, d *diagram.Diagram, csi *diagram.CSI) *diagram.State {
	if base != nil {
		return base.Clone()
	}
	s := &diagram.State{
		ID:            d.ID + "_state",
		DiagramID:     d.ID,
		CompartmentID: d.CompartmentID,
	}
	if csi != nil {
		s.CSIID = csi.ID
	}
	return s
}

// Admissible reports whether the labeled state excludes nothing: no
// element is N. Unresolved (U) elements do not block admissibility;
// the explanation counts them.
func Admissible(st *diagram.State) (bool, string) {
	if !st.Labeled() {
		return false, "labels not initialized"
	}
	unresolved := 0
	for id, l := range st.Labels {
		switch l {
		case diagram.LabelNot:
			return false, "element " + id + " is N (excluded)"
		case diagram.LabelUnknown:
			unresolved++
		}
	}
	if unresolved > 0 {
		return true, "admissible with unresolved (U) elements"
	}
	return true, "all elements admissible (I)"
}
