package crf

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
)

// Rule precondition names understood by Authorize.
const (
	PreAdmissible     = "admissible"
	PreNoHardConflict = "no_hard_conflict"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Authorized bool     `json:"authorized"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	// Excluded lists pattern-touched elements labeled N that denied
	// the admissibility precondition.
	Excluded []string `json:"excluded,omitempty"`
}

// Authorize decides whether a proposed rewrite may proceed. The state
// must already carry labels from AssignLabels; a caller that skipped
// labeling gets ErrUninitializedLabels, never a permissive default.
// Constraints are evaluated first and any hard error denies outright.
// Then each rule precondition is checked against the labeled state:
// "admissible" requires that no touched element is labeled N, where
// touched is the element set bound by the proposed match (nil means
// the whole state).
func Authorize(constraints []diagram.Constraint, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI, rule diagram.Rule, touched []string) (Decision, error) {
	return AuthorizeWith(Options{}, constraints, st, d, csi, rule, touched)
}

// AuthorizeWith is Authorize under explicit options.
func AuthorizeWith(opts Options, constraints []diagram.Constraint, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI, rule diagram.Rule, touched []string) (Decision, error) {
	if !st.Labeled() {
		return Decision{}, diagram.ErrUninitializedLabels
	}

	errs, warns := EvaluateWith(opts, constraints, st, d, csi)
	dec := Decision{Errors: errs, Warnings: warns}
	if len(errs) > 0 {
		return dec, nil
	}

	for _, pre := range rule.Preconditions {
		switch pre {
		case PreAdmissible:
			excluded := excludedElements(st, touched)
			if len(excluded) > 0 {
				dec.Excluded = excluded
				dec.Errors = append(dec.Errors, fmt.Sprintf(
					"%s precondition failed: element %s is N (excluded)", rule.ID, excluded[0]))
				return dec, nil
			}
		case PreNoHardConflict:
			// Already enforced by constraint evaluation above.
		default:
			dec.Warnings = append(dec.Warnings, fmt.Sprintf(
				"rule %s has unknown precondition %s", rule.ID, pre))
		}
	}

	dec.Authorized = true
	return dec, nil
}

func excludedElements(st *diagram.State, touched []string) []string {
	var out []string
	if touched == nil {
		for id, l := range st.Labels {
			if l == diagram.LabelNot {
				out = append(out, id)
			}
		}
		return out
	}
	for _, id := range touched {
		if st.Labels[id] == diagram.LabelNot {
			out = append(out, id)
		}
	}
	return out
}

// ClassifyDenial maps a denied decision to the conflict type that
// routes it through resolution: hard constraint errors are
// hard_violation, exclusion of pattern-touched elements is
// dof_interference, and a soft-only denial is soft_violation.
func ClassifyDenial(dec Decision) (ConflictType, Details) {
	switch {
	case len(dec.Excluded) > 0:
		return ConflictDOFInterference, Details{Elements: dec.Excluded}
	case len(dec.Errors) > 0:
		return ConflictHardViolation, Details{Reason: dec.Errors[0]}
	case len(dec.Warnings) > 0:
		return ConflictSoftViolation, Details{Reason: dec.Warnings[0]}
	default:
		return ConflictHardViolation, Details{Reason: "denied without recorded evidence"}
	}
}
