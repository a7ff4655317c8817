package diagram

// Label is the ternary epistemic classification of a diagram element.
type Label string

const (
	// LabelIs marks an element admissible, coherent, affirmed.
	LabelIs Label = "I"
	// LabelNot marks an element excluded, forbidden, contradictory.
	LabelNot Label = "N"
	// LabelUnknown marks an element unresolved, undecidable, open.
	LabelUnknown Label = "U"
)

// MaxLoopHistory bounds the loop-gain history carried on a State.
const MaxLoopHistory = 100

// ConflictRecord describes one conflict routed through resolution. It
// is recorded verbatim in the deferred and escalated bookkeeping sets.
type ConflictRecord struct {
	Type         string   `json:"type,omitempty"`
	ConstraintID string   `json:"constraint_id,omitempty"`
	Scope        string   `json:"scope,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Elements     []string `json:"elements,omitempty"`
	Compartment  string   `json:"compartment,omitempty"`
}

// State is one evolution point of a diagram under a CSI: the I/N/U
// labeling plus the resolution side channel. Resolution procedures
// never mutate a State; they return a modified copy. Labels are
// recomputed wholesale each pass, never accumulated incrementally.
type State struct {
	ID            string           `json:"id"`
	DiagramID     string           `json:"diagram_id"`
	CSIID         string           `json:"csi_id"`
	CompartmentID string           `json:"compartment_id,omitempty"`
	Labels        map[string]Label `json:"inu_labels,omitempty"`

	// Side-channel bookkeeping, written only by resolution procedures.
	// Deferred and Escalated ACCUMULATE: deferring the same constraint
	// twice records two entries, so the entry count tracks how many
	// cycles a conflict has been pushed forward.
	Attenuated  []string         `json:"attenuated_constraints,omitempty"`
	Deferred    []ConflictRecord `json:"deferred_conflicts,omitempty"`
	Partitioned []string         `json:"partitioned_elements,omitempty"`
	Escalated   []ConflictRecord `json:"escalated_conflicts,omitempty"`
	Bifurcated  bool             `json:"bifurcated,omitempty"`
	Halted      bool             `json:"halted,omitempty"`
	HaltReason  string           `json:"halt_reason,omitempty"`

	// LoopHistory holds recent loop-gain samples, capped at
	// MaxLoopHistory entries (oldest dropped first).
	LoopHistory []float64 `json:"loop_history,omitempty"`
}

// Labeled reports whether the labeling pass has run for this state.
func (s *State) Labeled() bool {
	return s != nil && s.Labels != nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Labels != nil {
		c.Labels = make(map[string]Label, len(s.Labels))
		for k, v := range s.Labels {
			c.Labels[k] = v
		}
	}
	c.Attenuated = append([]string(nil), s.Attenuated...)
	c.Deferred = append([]ConflictRecord(nil), s.Deferred...)
	c.Partitioned = append([]string(nil), s.Partitioned...)
	c.Escalated = append([]ConflictRecord(nil), s.Escalated...)
	c.LoopHistory = append([]float64(nil), s.LoopHistory...)
	return &c
}

// WithLabels returns a copy of the state carrying the given labels.
func (s *State) WithLabels(labels map[string]Label) *State {
	c := s.Clone()
	c.Labels = labels
	return c
}

// AppendLoopSample returns a copy of the state with the sample appended
// to its loop-gain history, trimming to MaxLoopHistory entries.
func (s *State) AppendLoopSample(gain float64) *State {
	c := s.Clone()
	c.LoopHistory = append(c.LoopHistory, gain)
	if excess := len(c.LoopHistory) - MaxLoopHistory; excess > 0 {
		c.LoopHistory = append([]float64(nil), c.LoopHistory[excess:]...)
	}
	return c
}
