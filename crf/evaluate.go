package crf

import "github.com/sid-xyz/go-sid/diagram"

// Options configures constraint evaluation.
type Options struct {
	// Strict promotes predicate lookup failures to errors. In lenient
	// mode (the default) an unknown predicate is reported as a warning
	// and evaluation continues.
	Strict   bool
	Registry *Registry // nil means DefaultRegistry
}

func (o Options) registry() *Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return defaultRegistry
}

// pass caches predicate verdicts for one evaluation pass. Predicates
// are pure and their inputs are fixed for the duration of a pass, so a
// predicate shared by several constraints runs exactly once.
type pass struct {
	opts    Options
	st      *diagram.State
	d       *diagram.Diagram
	csi     *diagram.CSI
	results map[string]Result
}

func newPass(opts Options, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI) *pass {
	return &pass{
		opts:    opts,
		st:      st,
		d:       d,
		csi:     csi,
		results: make(map[string]Result),
	}
}

func (p *pass) run(name string) (Result, bool) {
	if r, done := p.results[name]; done {
		return r, true
	}
	pred, ok := p.opts.registry().Lookup(name)
	if !ok {
		return Result{}, false
	}
	r := pred(p.st, p.d, p.csi)
	p.results[name] = r
	return r, true
}

// Evaluate runs every constraint's predicate against the state,
// diagram, and CSI. Hard failures land in errors, soft failures in
// warnings; violations aggregate rather than short-circuit, so one
// pass reports everything. Failures are data, never Go errors.
func Evaluate(constraints []diagram.Constraint, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI) (errors, warnings []string) {
	return EvaluateWith(Options{}, constraints, st, d, csi)
}

// EvaluateWith is Evaluate under explicit options.
func EvaluateWith(opts Options, constraints []diagram.Constraint, st *diagram.State, d *diagram.Diagram, csi *diagram.CSI) (errors, warnings []string) {
	p := newPass(opts, st, d, csi)
	return p.evaluate(constraints)
}

func (p *pass) evaluate(constraints []diagram.Constraint) (errors, warnings []string) {
	for _, c := range constraints {
		if c.Predicate == "" {
			continue
		}
		r, found := p.run(c.Predicate)
		if !found {
			msg := "unknown predicate " + c.Predicate
			if p.opts.Strict {
				errors = append(errors, msg)
			} else {
				warnings = append(warnings, msg)
			}
			continue
		}
		if r.OK {
			continue
		}
		msg := c.ID + " failed: " + r.Explanation
		if c.Hard() {
			errors = append(errors, msg)
		} else {
			warnings = append(warnings, msg)
		}
	}
	return errors, warnings
}
