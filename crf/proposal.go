package crf

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
)

// Phase is a proposal's position in its lifecycle:
// Proposed -> Evaluated -> Authorized | Denied. A denied proposal
// resolves to exactly one outcome and is then terminal; retrying
// requires a new proposal. The framework runs no internal retry loop.
type Phase string

const (
	PhaseProposed   Phase = "proposed"
	PhaseEvaluated  Phase = "evaluated"
	PhaseAuthorized Phase = "authorized"
	PhaseDenied     Phase = "denied"
)

// Proposal is one candidate application of a rule to a diagram+state
// pair, tracked through the authorization lifecycle.
type Proposal struct {
	ID      string
	Rule    diagram.Rule
	Touched []string // element ids bound by the proposed match

	phase    Phase
	decision Decision
	outcome  Action
}

// NewProposal starts a proposal in the Proposed phase.
func NewProposal(id string, rule diagram.Rule, touched []string) *Proposal {
	return &Proposal{ID: id, Rule: rule, Touched: touched, phase: PhaseProposed}
}

// Phase returns the proposal's current phase.
func (p *Proposal) Phase() Phase { return p.phase }

// Decision returns the authorization decision once evaluated.
func (p *Proposal) Decision() Decision { return p.decision }

// Outcome returns the resolution action taken on denial, if any.
func (p *Proposal) Outcome() Action { return p.outcome }

// Evaluate moves the proposal Proposed -> Evaluated -> Authorized or
// Denied. Re-evaluating a proposal in any later phase is an error.
func (p *Proposal) Evaluate(opts Options, constraints []diagram.Constraint, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI) (Decision, error) {
	if p.phase != PhaseProposed {
		return Decision{}, fmt.Errorf("crf: proposal %s already %s", p.ID, p.phase)
	}
	p.phase = PhaseEvaluated
	dec, err := AuthorizeWith(opts, constraints, st, d, csi, p.Rule, p.Touched)
	if err != nil {
		p.phase = PhaseProposed
		return Decision{}, err
	}
	p.decision = dec
	if dec.Authorized {
		p.phase = PhaseAuthorized
	} else {
		p.phase = PhaseDenied
	}
	return dec, nil
}

// ResolveDenial routes a denied proposal through conflict resolution.
// It may run once; the chosen outcome is terminal for this proposal.
func (p *Proposal) ResolveDenial(st *diagram.State) (*diagram.State, Resolution, error) {
	if p.phase != PhaseDenied {
		return nil, Resolution{}, fmt.Errorf("crf: proposal %s is %s, not denied", p.ID, p.phase)
	}
	if p.outcome != "" {
		return nil, Resolution{}, fmt.Errorf("crf: proposal %s already resolved to %s", p.ID, p.outcome)
	}
	t, det := ClassifyDenial(p.decision)
	next, res := Resolve(t, det, st)
	p.outcome = res.Action
	return next, res, nil
}
