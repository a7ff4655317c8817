package validation

import (
	"fmt"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/rewrite"
)

// checkDeclarations verifies the declaration sections: ids present and
// unique per section, compartment indexes unique.
func (v *Validator) checkDeclarations() {
	seen := make(map[string]bool)
	for i, d := range v.pkg.DOFs {
		if d.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("DOF at index %d has no id", i), nil, "Give every DOF an id")
			continue
		}
		if seen[d.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate DOF id %q", d.ID), []string{d.ID}, "")
		}
		seen[d.ID] = true
	}

	comps := make(map[string]bool)
	indexes := make(map[int]string)
	for i, c := range v.pkg.Compartments {
		if c.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("Compartment at index %d has no id", i), nil, "Give every compartment an id")
			continue
		}
		if comps[c.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate compartment id %q", c.ID), []string{c.ID}, "")
		}
		comps[c.ID] = true
		if prev, dup := indexes[c.Index]; dup {
			v.AddError("duplicate_index",
				fmt.Sprintf("Compartments %q and %q share index %d", prev, c.ID, c.Index),
				[]string{prev, c.ID}, "Compartment ordering must be total")
		}
		indexes[c.Index] = c.ID
	}
}

// checkCSIs verifies each sphere's id uniqueness and that allowed DOFs
// and allowed pairs reference declared DOFs.
func (v *Validator) checkCSIs() {
	dofs := v.dofSet()
	seen := make(map[string]bool)
	for i, c := range v.pkg.CSIs {
		if c.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("CSI at index %d has no id", i), nil, "")
			continue
		}
		if seen[c.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate CSI id %q", c.ID), []string{c.ID}, "")
		}
		seen[c.ID] = true
		for _, d := range c.AllowedDOFs {
			if !dofs[d] {
				v.AddError("missing_reference",
					fmt.Sprintf("CSI %s allows unknown DOF %q", c.ID, d),
					[]string{c.ID}, "Declare the DOF or remove it from the sphere")
			}
		}
		for _, p := range c.AllowedPairs {
			for _, d := range p {
				if !dofs[d] {
					v.AddError("invalid_csi_pair",
						fmt.Sprintf("CSI %s allowed pair references unknown DOF %q", c.ID, d),
						[]string{c.ID}, "")
				}
			}
		}
	}
}

// checkDiagrams verifies DOF and compartment references inside each
// diagram and rejects cyclic diagrams. Structural shape is already
// guaranteed by construction.
func (v *Validator) checkDiagrams() {
	dofs := v.dofSet()
	comps := v.compartmentSet()
	seen := make(map[string]bool)
	for _, d := range v.pkg.Diagrams {
		if seen[d.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate diagram id %q", d.ID), []string{d.ID}, "")
		}
		seen[d.ID] = true
		if d.CompartmentID != "" && !comps[d.CompartmentID] {
			v.AddError("missing_reference",
				fmt.Sprintf("Diagram %s references unknown compartment %q", d.ID, d.CompartmentID),
				[]string{d.ID}, "")
		}
		for _, n := range d.Nodes {
			for _, ref := range n.DOFRefs {
				if !dofs[ref] {
					v.AddError("missing_reference",
						fmt.Sprintf("Diagram %s node %s references unknown DOF %q", d.ID, n.ID, ref),
						[]string{d.ID, n.ID}, "")
				}
			}
			if n.Op == diagram.OpTransport && n.Meta != nil && n.Meta.TargetCompartment != "" {
				if !comps[n.Meta.TargetCompartment] {
					v.AddError("missing_reference",
						fmt.Sprintf("Diagram %s transport %s targets unknown compartment %q",
							d.ID, n.ID, n.Meta.TargetCompartment),
						[]string{d.ID, n.ID}, "")
				}
			}
			if n.Op == diagram.OpCollapse && !n.Irreversible {
				v.AddError("collapse_not_irreversible",
					fmt.Sprintf("Diagram %s collapse node %s must be irreversible", d.ID, n.ID),
					[]string{d.ID, n.ID}, "")
			}
		}
		if d.HasCycle() {
			v.AddError("illegal_cycle",
				fmt.Sprintf("Diagram %s contains a cycle", d.ID),
				[]string{d.ID}, "Break the cycle; diagrams are acyclic")
		}
	}
}

// checkStates verifies that each state's diagram and sphere exist and
// that node DOF usage stays inside the bound sphere.
func (v *Validator) checkStates() {
	seen := make(map[string]bool)
	for i, s := range v.pkg.States {
		if s.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("State at index %d has no id", i), nil, "")
			continue
		}
		if seen[s.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate state id %q", s.ID), []string{s.ID}, "")
		}
		seen[s.ID] = true

		d, ok := v.pkg.Diagram(s.DiagramID)
		if !ok {
			v.AddError("missing_reference",
				fmt.Sprintf("State %s references unknown diagram %q", s.ID, s.DiagramID),
				[]string{s.ID}, "")
			continue
		}
		if s.CSIID == "" {
			continue
		}
		csi, ok := v.pkg.CSI(s.CSIID)
		if !ok {
			v.AddError("missing_reference",
				fmt.Sprintf("State %s references unknown CSI %q", s.ID, s.CSIID),
				[]string{s.ID}, "")
			continue
		}
		for _, n := range d.Nodes {
			for _, ref := range n.DOFRefs {
				if !csi.DOFAllowed(ref) {
					v.AddError("dof_outside_csi",
						fmt.Sprintf("Diagram %s node %s uses DOF %q outside CSI %s", d.ID, n.ID, ref, csi.ID),
						[]string{d.ID, n.ID}, "Extend the sphere or drop the reference")
				}
			}
		}
		if csi.HasPairs() {
			for _, e := range d.Edges {
				from, _ := d.Node(e.From)
				to, _ := d.Node(e.To)
				for _, fd := range from.DOFRefs {
					for _, td := range to.DOFRefs {
						if !csi.PairAllowed(fd, td) {
							v.AddError("csi_pair_violation",
								fmt.Sprintf("Diagram %s edge %s violates CSI %s pair (%s, %s)",
									d.ID, e.ID, csi.ID, fd, td),
								[]string{d.ID, e.ID}, "")
						}
					}
				}
			}
		}
	}
}

// checkConstraints warns on predicates the frozen registry does not
// know; they fail open or closed at evaluation time depending on
// strictness, so surfacing them early helps.
func (v *Validator) checkConstraints() {
	reg := crf.DefaultRegistry()
	seen := make(map[string]bool)
	for i, c := range v.pkg.Constraints {
		if c.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("Constraint at index %d has no id", i), nil, "")
			continue
		}
		if seen[c.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate constraint id %q", c.ID), []string{c.ID}, "")
		}
		seen[c.ID] = true
		if c.Type != diagram.ConstraintHard && c.Type != diagram.ConstraintSoft {
			v.AddError("invalid_constraint",
				fmt.Sprintf("Constraint %s has unknown type %q", c.ID, c.Type),
				[]string{c.ID}, `Use "hard" or "soft"`)
		}
		if _, ok := reg.Lookup(c.Predicate); !ok {
			v.AddWarning("unknown_predicate",
				fmt.Sprintf("Constraint %s names unregistered predicate %q", c.ID, c.Predicate),
				[]string{c.ID}, "Unknown predicates deny in strict mode")
		}
	}
}

// checkRules compiles every rewrite rule and flags identity rules.
func (v *Validator) checkRules() {
	seen := make(map[string]bool)
	for i, r := range v.pkg.Rules {
		if r.ID == "" {
			v.AddError("missing_id", fmt.Sprintf("Rule at index %d has no id", i), nil, "")
			continue
		}
		if seen[r.ID] {
			v.AddError("duplicate_id", fmt.Sprintf("Duplicate rule id %q", r.ID), []string{r.ID}, "")
		}
		seen[r.ID] = true
		if _, err := rewrite.Compile(r); err != nil {
			v.AddError("invalid_rule",
				fmt.Sprintf("Rule %s does not compile: %v", r.ID, err),
				[]string{r.ID}, "")
			continue
		}
		if r.Identity() {
			v.AddInfo("identity_rule",
				fmt.Sprintf("Rule %s is an identity rewrite and can never change a diagram", r.ID),
				[]string{r.ID})
		}
	}
}

func (v *Validator) dofSet() map[string]bool {
	out := make(map[string]bool, len(v.pkg.DOFs))
	for _, d := range v.pkg.DOFs {
		out[d.ID] = true
	}
	return out
}

func (v *Validator) compartmentSet() map[string]bool {
	out := make(map[string]bool, len(v.pkg.Compartments))
	for _, c := range v.pkg.Compartments {
		out[c.ID] = true
	}
	return out
}
