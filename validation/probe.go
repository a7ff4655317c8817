package validation

import (
	"fmt"
	"sort"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
)

// probeAdmissibility runs the labeling layer for every state and
// reports excluded and unresolved elements. Exclusions are warnings
// rather than errors: a package carrying an inadmissible state is
// well-formed, it just cannot authorize rewrites touching those
// elements.
func (v *Validator) probeAdmissibility() {
	for _, st := range v.pkg.States {
		d, ok := v.pkg.Diagram(st.DiagramID)
		if !ok {
			continue // already reported by checkStates
		}
		csi := v.pkg.CSIForState(st)
		labeled := crf.AssignLabels(d, v.pkg.Constraints, st, csi)

		var excluded, unresolved []string
		for id, l := range labeled.Labels {
			switch l {
			case diagram.LabelNot:
				excluded = append(excluded, id)
			case diagram.LabelUnknown:
				unresolved = append(unresolved, id)
			}
		}
		sort.Strings(excluded)
		sort.Strings(unresolved)

		if len(excluded) > 0 {
			v.AddWarning("excluded_elements",
				fmt.Sprintf("State %s excludes %d element(s) under its constraints", st.ID, len(excluded)),
				excluded, "Rewrites touching excluded elements will be denied")
		}
		if len(unresolved) > 0 {
			v.AddInfo("unresolved_elements",
				fmt.Sprintf("State %s leaves %d element(s) unresolved", st.ID, len(unresolved)),
				unresolved)
		}
		if ok, why := crf.Admissible(labeled); ok {
			v.AddInfo("admissible", fmt.Sprintf("State %s: %s", st.ID, why), nil)
		}
	}
}
