// Package crf implements the constraint-resolution framework: a frozen
// predicate registry, constraint evaluation, ternary I/N/U labeling,
// rewrite authorization, and the six conflict-resolution procedures.
// Every entry point takes its inputs explicitly and returns new values;
// nothing in this package mutates a diagram or a caller's state.
package crf

import (
	"fmt"
	"sort"

	"github.com/sid-xyz/go-sid/diagram"
)

// Built-in predicate names.
const (
	PredCSIBoundary            = "no_cross_csi_interaction"
	PredCollapseIrreversible   = "collapse_irreversible"
	PredNoCycles               = "no_cycles"
	PredCompartmentTransitions = "valid_compartment_transitions"
)

// Result is a predicate verdict. Violating lists the element ids the
// predicate implicates; an empty set on a failed check means the whole
// diagram is implicated.
type Result struct {
	OK          bool
	Explanation string
	Violating   []string
}

// Predicate is a pure check over a state, diagram, and CSI. Predicates
// must not retain or mutate their arguments; the registry is read
// concurrently.
type Predicate func(st *diagram.State, d *diagram.Diagram, csi *diagram.CSI) Result

// Registry maps predicate names to implementations. Registration
// happens before the pipeline runs; Freeze makes the registry immutable
// and safe for concurrent lookup.
type Registry struct {
	preds  map[string]Predicate
	frozen bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// Register adds a named predicate. It fails once the registry is frozen
// or when the name is already taken.
func (r *Registry) Register(name string, p Predicate) error {
	if r.frozen {
		return fmt.Errorf("crf: registry frozen, cannot register %q", name)
	}
	if _, dup := r.preds[name]; dup {
		return fmt.Errorf("crf: predicate %q already registered", name)
	}
	r.preds[name] = p
	return nil
}

// Freeze seals the registry against further registration.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	p, ok := r.preds[name]
	return p, ok
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.preds))
	for name := range r.preds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	builtins := map[string]Predicate{
		PredCSIBoundary:            csiBoundary,
		PredCollapseIrreversible:   collapseIrreversible,
		PredNoCycles:               noCycles,
		PredCompartmentTransitions: compartmentTransitions,
	}
	for name, p := range builtins {
		if err := r.Register(name, p); err != nil {
			panic(err)
		}
	}
	r.Freeze()
	return r
}()

// DefaultRegistry returns the frozen registry holding the built-in
// predicate set.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// csiBoundary verifies every edge stays inside the CSI's admissible
// DOF pairs. A CSI declaring no pairs places no restriction.
func csiBoundary(_ *diagram.State, d *diagram.Diagram, csi *diagram.CSI) Result {
	if csi == nil || !csi.HasPairs() {
		return Result{OK: true, Explanation: "no admissible pairs declared; pair check skipped"}
	}
	var violating []string
	var first string
	for _, e := range d.Edges {
		from, okFrom := d.Node(e.From)
		to, okTo := d.Node(e.To)
		if !okFrom || !okTo {
			continue
		}
		for _, fd := range from.DOFRefs {
			for _, td := range to.DOFRefs {
				if !csi.PairAllowed(fd, td) {
					violating = append(violating, e.ID)
					if first == "" {
						first = fmt.Sprintf("edge %s violates CSI pair (%s, %s)", e.ID, fd, td)
					}
				}
			}
		}
	}
	if len(violating) > 0 {
		return Result{OK: false, Explanation: first, Violating: violating}
	}
	return Result{OK: true, Explanation: "all edges within CSI pairs"}
}

// collapseIrreversible verifies every Collapse node carries the
// irreversibility mark. The mark must survive every Transport.
func collapseIrreversible(_ *diagram.State, d *diagram.Diagram, _ *diagram.CSI) Result {
	var violating []string
	for _, n := range d.Nodes {
		if n.Op == diagram.OpCollapse && !n.Irreversible {
			violating = append(violating, n.ID)
		}
	}
	if len(violating) > 0 {
		return Result{
			OK:          false,
			Explanation: fmt.Sprintf("collapse node %s must be marked irreversible", violating[0]),
			Violating:   violating,
		}
	}
	return Result{OK: true, Explanation: "all collapse nodes marked irreversible"}
}

// noCycles checks acyclicity. One full-diagram traversal per evaluation
// pass; Evaluate and AssignLabels cache the verdict so the cost is paid
// once regardless of element count.
func noCycles(_ *diagram.State, d *diagram.Diagram, _ *diagram.CSI) Result {
	if d.HasCycle() {
		return Result{OK: false, Explanation: "cycle detected in diagram"}
	}
	return Result{OK: true, Explanation: "no cycles detected"}
}

// compartmentTransitions verifies every Transport node names a target
// compartment.
func compartmentTransitions(_ *diagram.State, d *diagram.Diagram, _ *diagram.CSI) Result {
	var violating []string
	for _, n := range d.Nodes {
		if n.Op != diagram.OpTransport {
			continue
		}
		if n.Meta == nil || n.Meta.TargetCompartment == "" {
			violating = append(violating, n.ID)
		}
	}
	if len(violating) > 0 {
		return Result{
			OK:          false,
			Explanation: fmt.Sprintf("transport node %s missing target compartment", violating[0]),
			Violating:   violating,
		}
	}
	return Result{OK: true, Explanation: "all transport nodes valid"}
}
