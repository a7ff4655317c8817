package rewrite

import (
	"fmt"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
)

// RunOptions configures the driving loop.
type RunOptions struct {
	// MaxIterations caps total rule applications across the run.
	// Zero means DefaultMaxIterations.
	MaxIterations int
	// MaxMatches caps match enumeration per rule per sweep. Zero
	// means DefaultMaxMatches.
	MaxMatches int
	// Strict turns unknown constraint predicates into hard errors.
	Strict bool
	// Registry overrides the default predicate registry.
	Registry *crf.Registry
}

// Application records one accepted rewrite.
type Application struct {
	RuleID    string   `json:"rule_id"`
	Iteration int      `json:"iteration"`
	Touched   []string `json:"touched"`
}

// RunResult is the outcome of a driving-loop run.
type RunResult struct {
	Diagram         *diagram.Diagram `json:"-"`
	State           *diagram.State   `json:"-"`
	Applications    []Application    `json:"applications"`
	Iterations      int              `json:"iterations"`
	Messages        []string         `json:"messages,omitempty"`
	FixedPoint      bool             `json:"fixed_point"`
	BudgetExhausted bool             `json:"budget_exhausted"`
	Halted          bool             `json:"halted"`
}

// Run applies the rule set repeatedly until no rule yields an
// authorized match, the iteration budget runs out, or a conflict
// resolution halts the state. Reaching the budget is reported
// distinctly from reaching a fixed point. Every application goes
// through constraint evaluation and authorization; denied proposals
// run their conflict-resolution procedure before the loop moves on.
func Run(d *diagram.Diagram, st *diagram.State, csi *diagram.CSI, rules []diagram.Rule, constraints []diagram.Constraint, opts RunOptions) (*RunResult, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = DefaultMaxMatches
	}
	crfOpts := crf.Options{Strict: opts.Strict, Registry: opts.Registry}

	matchers := make([]*Matcher, 0, len(rules))
	res := &RunResult{}
	for _, r := range rules {
		if r.Identity() {
			res.Messages = append(res.Messages, fmt.Sprintf("rule %s: pattern equals replacement, skipped", r.ID))
			continue
		}
		m, err := Compile(r)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	if st == nil || !st.Labeled() {
		st = crf.AssignLabelsWith(crfOpts, d, constraints, st, csi)
	}

	for {
		if st.Halted {
			res.Halted = true
			break
		}
		progress := false
		for _, m := range matchers {
			applied, halted, err := runOne(m, &d, &st, csi, constraints, crfOpts, opts.MaxMatches, res)
			if err != nil {
				return nil, err
			}
			if halted {
				res.Halted = true
				res.Diagram, res.State = d, st
				return res, nil
			}
			if applied {
				progress = true
				if res.Iterations >= opts.MaxIterations {
					break
				}
			}
		}
		if !progress {
			res.FixedPoint = true
			break
		}
		if res.Iterations >= opts.MaxIterations {
			res.BudgetExhausted = true
			res.Messages = append(res.Messages,
				fmt.Sprintf("iteration budget of %d reached before a fixed point", opts.MaxIterations))
			break
		}
	}
	res.Diagram, res.State = d, st
	return res, nil
}

// runOne walks one rule's lazy match enumeration against the current
// diagram and applies the first authorized match. Denied matches run
// their resolution procedure and enumeration continues with the next
// non-overlapping occurrence.
func runOne(m *Matcher, d **diagram.Diagram, st **diagram.State, csi *diagram.CSI, constraints []diagram.Constraint, crfOpts crf.Options, maxMatches int, res *RunResult) (applied, halted bool, err error) {
	ms := m.FindMatchesFrom(*d, nil, maxMatches)
	for attempt := 0; ; attempt++ {
		match, ok := ms.Next()
		if !ok {
			if ms.LimitReached() {
				res.Messages = append(res.Messages,
					fmt.Sprintf("rule %s: match budget of %d reached", m.rule.ID, maxMatches))
			}
			return false, false, nil
		}
		prop := crf.NewProposal(fmt.Sprintf("%s#%d.%d", m.rule.ID, res.Iterations, attempt), m.rule, match.Touched())
		dec, err := prop.Evaluate(crfOpts, constraints, *st, *d, csi)
		if err != nil {
			return false, false, err
		}
		if !dec.Authorized {
			next, resolution, err := prop.ResolveDenial(*st)
			if err != nil {
				return false, false, err
			}
			*st = next
			res.Messages = append(res.Messages, fmt.Sprintf("rule %s: %s", m.rule.ID, resolution.Message))
			if resolution.Action == crf.ActionHalt {
				return false, true, nil
			}
			continue
		}
		next, err := m.Apply(*d, match)
		if err != nil {
			res.Messages = append(res.Messages, fmt.Sprintf("rule %s: application rejected: %v", m.rule.ID, err))
			continue
		}
		res.Iterations++
		res.Applications = append(res.Applications, Application{
			RuleID:    m.rule.ID,
			Iteration: res.Iterations,
			Touched:   match.Touched(),
		})
		*d = next
		*st = crf.AssignLabelsWith(crfOpts, next, constraints, *st, csi)
		return true, false, nil
	}
}
