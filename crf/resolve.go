package crf

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
)

// ConflictType classifies why a proposal was denied. Listed from least
// to most severe; dispatch picks the single procedure mapped to the
// type, and an unrecognized type halts.
type ConflictType string

const (
	ConflictSoftViolation    ConflictType = "soft_violation"    // -> attenuate
	ConflictTemporalMismatch ConflictType = "temporal_mismatch" // -> defer
	ConflictDOFInterference  ConflictType = "dof_interference"  // -> partition
	ConflictScopeOverflow    ConflictType = "scope_overflow"    // -> escalate
	ConflictAmbiguousChoice  ConflictType = "ambiguous_choice"  // -> bifurcate
	ConflictHardViolation    ConflictType = "hard_violation"    // -> halt
)

// Action names a resolution procedure.
type Action string

const (
	ActionAttenuate Action = "attenuate"
	ActionDefer     Action = "defer"
	ActionPartition Action = "partition"
	ActionEscalate  Action = "escalate"
	ActionBifurcate Action = "bifurcate"
	ActionHalt      Action = "halt"
)

// Details carries the evidence for a conflict into resolution.
type Details struct {
	Type              ConflictType `json:"type,omitempty"`
	ConstraintID      string       `json:"constraint_id,omitempty"`
	Scope             string       `json:"scope,omitempty"`
	Reason            string       `json:"reason,omitempty"`
	Elements          []string     `json:"elements,omitempty"`
	TargetCompartment string       `json:"target_compartment,omitempty"`
	Choices           []string     `json:"choices,omitempty"`
}

func (det Details) record() diagram.ConflictRecord {
	return diagram.ConflictRecord{
		Type:         string(det.Type),
		ConstraintID: det.ConstraintID,
		Scope:        det.Scope,
		Reason:       det.Reason,
		Elements:     append([]string(nil), det.Elements...),
		Compartment:  det.TargetCompartment,
	}
}

// Branch is one candidate continuation produced by Bifurcate. The
// caller selects one, both, or neither.
type Branch struct {
	Choice string         `json:"choice"`
	State  *diagram.State `json:"-"`
}

// PartitionPlan describes a required compartment split. It is a pure
// decision value; the caller performs the actual split.
type PartitionPlan struct {
	Elements        []string `json:"elements"`
	FromCompartment string   `json:"from_compartment,omitempty"`
}

// Resolution is the returned value of a resolution procedure. It is
// never an in-place mutation; the accompanying state is a fresh copy.
type Resolution struct {
	Action   Action   `json:"action"`
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Details  Details  `json:"details,omitempty"`
	Requeue  bool     `json:"requeue,omitempty"` // escalate: re-run the proposal queue
	Branches []Branch `json:"branches,omitempty"`
	Plan     *PartitionPlan `json:"plan,omitempty"`
}

// Attenuate downgrades a soft constraint's weight, recording its id in
// the attenuated set of the returned state. The diagram is unchanged.
func Attenuate(det Details, st *diagram.State) (*diagram.State, Resolution) {
	id := det.ConstraintID
	if id == "" {
		id = "unknown"
	}
	next := st.Clone()
	next.Attenuated = append(next.Attenuated, id)
	return next, Resolution{
		Action:  ActionAttenuate,
		Success: true,
		Message: fmt.Sprintf("attenuated soft constraint %s", id),
		Details: det,
	}
}

// Defer postpones the conflicting application to a later compartment.
// No diagram change happens this cycle. Repeated defers of the same
// conflict accumulate; the entry count is the number of cycles the
// conflict has been pushed forward.
func Defer(det Details, st *diagram.State) (*diagram.State, Resolution) {
	next := st.Clone()
	next.Deferred = append(next.Deferred, det.record())
	return next, Resolution{
		Action:  ActionDefer,
		Success: true,
		Message: fmt.Sprintf("deferred conflict of type %s to next compartment", orUnknown(string(det.Type))),
		Details: det,
	}
}

// Partition returns a description of the compartment split required to
// separate the conflicting elements. The procedure decides; the caller
// executes the split.
func Partition(det Details, st *diagram.State) (*diagram.State, Resolution) {
	next := st.Clone()
	next.Partitioned = append(next.Partitioned, det.Elements...)
	return next, Resolution{
		Action:  ActionPartition,
		Success: true,
		Message: fmt.Sprintf("partitioned %d conflicting elements into separate compartments", len(det.Elements)),
		Details: det,
		Plan: &PartitionPlan{
			Elements:        append([]string(nil), det.Elements...),
			FromCompartment: st.CompartmentID,
		},
	}
}

// Escalate raises the constraint's scope from local to global and
// signals that the proposal queue should be re-run.
func Escalate(det Details, st *diagram.State) (*diagram.State, Resolution) {
	rec := det.record()
	rec.Scope = diagram.ScopeGlobal
	next := st.Clone()
	next.Escalated = append(next.Escalated, rec)
	return next, Resolution{
		Action:  ActionEscalate,
		Success: true,
		Message: fmt.Sprintf("escalated %s conflict to global scope", orUnknown(det.Scope)),
		Details: det,
		Requeue: true,
	}
}

// Bifurcate returns candidate state branches, one per choice, for the
// caller to select among. With no choices given it produces the two
// default branches "left" and "right".
func Bifurcate(det Details, st *diagram.State) (*diagram.State, Resolution) {
	choices := det.Choices
	if len(choices) == 0 {
		choices = []string{"left", "right"}
	}
	next := st.Clone()
	next.Bifurcated = true
	branches := make([]Branch, 0, len(choices))
	for _, choice := range choices {
		branches = append(branches, Branch{Choice: choice, State: next.Clone()})
	}
	return next, Resolution{
		Action:   ActionBifurcate,
		Success:  true,
		Message:  fmt.Sprintf("bifurcated state into %d parallel branches", len(branches)),
		Details:  det,
		Branches: branches,
	}
}

// Halt stops processing of this diagram+state pair: the conflict is
// unresolvable. The caller must not apply further rules to the pair.
func Halt(det Details, st *diagram.State) (*diagram.State, Resolution) {
	reason := det.Reason
	if reason == "" {
		reason = "unresolvable hard constraint violation"
	}
	next := st.Clone()
	next.Halted = true
	next.HaltReason = reason
	return next, Resolution{
		Action:  ActionHalt,
		Success: false,
		Message: "halted: " + reason,
		Details: det,
	}
}

// Resolve dispatches a classified conflict to exactly one of the six
// procedures. The mapping is total: every known type has one
// procedure, and unknown types halt rather than guess.
func Resolve(t ConflictType, det Details, st *diagram.State) (*diagram.State, Resolution) {
	det.Type = t
	switch t {
	case ConflictHardViolation:
		return Halt(det, st)
	case ConflictAmbiguousChoice:
		return Bifurcate(det, st)
	case ConflictScopeOverflow:
		return Escalate(det, st)
	case ConflictDOFInterference:
		return Partition(det, st)
	case ConflictTemporalMismatch:
		return Defer(det, st)
	case ConflictSoftViolation:
		return Attenuate(det, st)
	default:
		det.Reason = fmt.Sprintf("unknown conflict type: %s", t)
		return Halt(det, st)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
