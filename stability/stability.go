// Package stability decides whether a rewrite process has terminated
// and computes the metrics a stable process has earned. Four
// independently sufficient conditions govern termination; by default
// any one suffices, with an all-required mode for stricter
// verification.
package stability

import (
	"fmt"
	"math"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/rewrite"
)

// DefaultTolerance bounds the loop-gain difference treated as
// converged.
const DefaultTolerance = 1e-6

// Options configures a stability check.
type Options struct {
	// Tolerance for the loop-gain convergence condition. Zero means
	// DefaultTolerance.
	Tolerance float64
	// RequireAll switches from any-condition (the default) to
	// all-conditions semantics.
	RequireAll bool
	// Strict and Registry are passed through to constraint
	// evaluation.
	Strict   bool
	Registry *crf.Registry
	// MaxMatches caps applicability probing per rule.
	MaxMatches int
}

// Condition is one termination condition's verdict.
type Condition struct {
	Name        string `json:"name"`
	Satisfied   bool   `json:"satisfied"`
	Explanation string `json:"explanation"`
}

// Condition names.
const (
	CondNoAdmissibleRewrites = "no_admissible_rewrites"
	CondInvariantTransport   = "invariant_under_transport"
	CondOnlyIdentityRewrites = "only_identity_rewrites"
	CondLoopConvergence      = "loop_convergence"
)

// Report is the outcome of a stability check.
type Report struct {
	Stable     bool        `json:"stable"`
	RequireAll bool        `json:"require_all"`
	Conditions []Condition `json:"conditions"`
	Message    string      `json:"message"`
}

// Satisfied lists the names of the satisfied conditions.
func (r Report) Satisfied() []string {
	var out []string
	for _, c := range r.Conditions {
		if c.Satisfied {
			out = append(out, c.Name)
		}
	}
	return out
}

// Check evaluates the four termination conditions against the current
// diagram, state, and rule set.
func Check(d *diagram.Diagram, st *diagram.State, csi *diagram.CSI, rules []diagram.Rule, constraints []diagram.Constraint, opts Options) Report {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = rewrite.DefaultMaxMatches
	}
	conditions := []Condition{
		checkNoAdmissibleRewrites(d, st, csi, rules, constraints, opts),
		checkInvariantUnderTransport(d, st, csi, constraints, opts),
		checkOnlyIdentityRewrites(rules),
		checkLoopConvergence(st, opts.Tolerance),
	}
	met := 0
	for _, c := range conditions {
		if c.Satisfied {
			met++
		}
	}
	rep := Report{RequireAll: opts.RequireAll, Conditions: conditions}
	if opts.RequireAll {
		rep.Stable = met == len(conditions)
		if rep.Stable {
			rep.Message = fmt.Sprintf("stable: all %d conditions met", len(conditions))
		} else {
			rep.Message = fmt.Sprintf("not stable: %d/%d conditions met, all required", met, len(conditions))
		}
		return rep
	}
	rep.Stable = met > 0
	if rep.Stable {
		rep.Message = fmt.Sprintf("stable: %d condition(s) met", met)
	} else {
		rep.Message = "not stable: no termination condition met"
	}
	return rep
}

// checkNoAdmissibleRewrites re-runs authorization and match probing
// for every rule without applying anything. The condition holds when
// no rule is both authorized and applicable.
func checkNoAdmissibleRewrites(d *diagram.Diagram, st *diagram.State, csi *diagram.CSI, rules []diagram.Rule, constraints []diagram.Constraint, opts Options) Condition {
	cond := Condition{Name: CondNoAdmissibleRewrites}
	crfOpts := crf.Options{Strict: opts.Strict, Registry: opts.Registry}
	for _, r := range rules {
		m, err := rewrite.Compile(r)
		if err != nil {
			cond.Explanation = fmt.Sprintf("rule %s does not compile: %v", r.ID, err)
			return cond
		}
		match, ok := m.FindMatchesFrom(d, nil, opts.MaxMatches).Next()
		if !ok {
			continue
		}
		dec, err := crf.AuthorizeWith(crfOpts, constraints, st, d, csi, r, match.Touched())
		if err != nil {
			cond.Explanation = fmt.Sprintf("authorization for rule %s failed: %v", r.ID, err)
			return cond
		}
		if dec.Authorized {
			cond.Explanation = fmt.Sprintf("rewrite %s is still admissible", r.ID)
			return cond
		}
	}
	cond.Satisfied = true
	cond.Explanation = "no admissible rewrites remain"
	return cond
}

// checkInvariantUnderTransport verifies that the admissible region is
// preserved across transport: every transport node sits in the
// admissible region and every previously admissible element stays
// admissible under a fresh labeling. New elements may appear freely.
func checkInvariantUnderTransport(d *diagram.Diagram, st *diagram.State, csi *diagram.CSI, constraints []diagram.Constraint, opts Options) Condition {
	cond := Condition{Name: CondInvariantTransport}
	transports := d.NodesByOp(diagram.OpTransport)
	if len(transports) == 0 {
		cond.Satisfied = true
		cond.Explanation = "no transport operations present"
		return cond
	}
	crfOpts := crf.Options{Strict: opts.Strict, Registry: opts.Registry}
	fresh := crf.AssignLabelsWith(crfOpts, d, constraints, st, csi)
	for _, tn := range transports {
		if fresh.Labels[tn.ID] != diagram.LabelIs {
			cond.Explanation = fmt.Sprintf("transport node %s is not in the admissible region", tn.ID)
			return cond
		}
	}
	if st != nil {
		for id, l := range st.Labels {
			if l == diagram.LabelIs && fresh.Labels[id] != diagram.LabelIs {
				cond.Explanation = fmt.Sprintf("previously admissible element %s is no longer admissible", id)
				return cond
			}
		}
	}
	cond.Satisfied = true
	cond.Explanation = "admissible region invariant under transport"
	return cond
}

// checkOnlyIdentityRewrites holds when every rule in the active set is
// an identity rewrite, meaning no application can change the diagram.
func checkOnlyIdentityRewrites(rules []diagram.Rule) Condition {
	cond := Condition{Name: CondOnlyIdentityRewrites}
	for _, r := range rules {
		if !r.Identity() {
			cond.Explanation = fmt.Sprintf("non-identity rewrite %s present", r.ID)
			return cond
		}
	}
	cond.Satisfied = true
	cond.Explanation = "only identity rewrites authorized"
	return cond
}

// checkLoopConvergence holds when the two latest loop-gain samples
// differ by less than the tolerance. Fewer than two samples can never
// witness convergence.
func checkLoopConvergence(st *diagram.State, tolerance float64) Condition {
	cond := Condition{Name: CondLoopConvergence}
	if st == nil || len(st.LoopHistory) < 2 {
		cond.Explanation = "insufficient loop history for convergence check"
		return cond
	}
	n := len(st.LoopHistory)
	delta := math.Abs(st.LoopHistory[n-1] - st.LoopHistory[n-2])
	if delta < tolerance {
		cond.Satisfied = true
		cond.Explanation = fmt.Sprintf("loop gain converged (delta %.6g)", delta)
		return cond
	}
	cond.Explanation = fmt.Sprintf("loop not converged (delta %.6g)", delta)
	return cond
}

// Metrics are the ratios a stable process has earned. Every metric is
// a ratio over an element count; a zero denominator yields 1.0,
// read as vacuously satisfied, never NaN.
type Metrics struct {
	AdmissibleVolume  float64 `json:"admissible_volume"`
	CollapseRatio     float64 `json:"collapse_ratio"`
	GradientCoherence float64 `json:"gradient_coherence"`
	TransportFidelity float64 `json:"transport_fidelity"`
	LoopGain          float64 `json:"loop_gain"`
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1.0
	}
	return float64(num) / float64(den)
}

// ComputeMetrics derives the earned metrics from a labeled state and
// its diagram.
func ComputeMetrics(d *diagram.Diagram, st *diagram.State) Metrics {
	admissible := 0
	total := 0
	if st != nil {
		for _, l := range st.Labels {
			total++
			if l == diagram.LabelIs {
				admissible++
			}
		}
	}

	nodes := len(d.Nodes)
	transports := d.NodesByOp(diagram.OpTransport)
	routed := 0
	for _, tn := range transports {
		if tn.Meta != nil && tn.Meta.TargetCompartment != "" {
			routed++
		}
	}

	m := Metrics{
		AdmissibleVolume:  ratio(admissible, total),
		CollapseRatio:     ratio(len(d.NodesByOp(diagram.OpCollapse)), nodes),
		GradientCoherence: ratio(len(d.NodesByOp(diagram.OpCoupling)), nodes),
		TransportFidelity: ratio(routed, len(transports)),
	}
	if st != nil && len(st.LoopHistory) > 0 {
		m.LoopGain = st.LoopHistory[len(st.LoopHistory)-1]
	}
	return m
}
