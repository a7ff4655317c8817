// Package engine drives the full resolution pipeline for one diagram
// and state: labeling, rewrite proposal and authorization, conflict
// resolution, application, and stability checking, iterated until the
// process stabilizes, halts, or runs out of budget. The pipeline is
// synchronous; cancellation is honored between iterations, the single
// suspension point.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sid-xyz/go-sid/crf"
	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/eventlog"
	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/rewrite"
	"github.com/sid-xyz/go-sid/stability"
)

// DefaultMaxIterations caps pipeline iterations.
const DefaultMaxIterations = 1000

// Options configures a pipeline run.
type Options struct {
	// MaxIterations caps pipeline iterations. Zero means
	// DefaultMaxIterations.
	MaxIterations int
	// MaxMatches caps match enumeration per rule.
	MaxMatches int
	// Tolerance for loop-gain convergence.
	Tolerance float64
	// RequireAll switches the stability check to all-conditions
	// semantics.
	RequireAll bool
	// Strict turns unknown predicates into hard errors.
	Strict   bool
	Registry *crf.Registry
	// Logger receives structured progress; nil disables logging.
	Logger *zerolog.Logger
	// Log, when set, records the event stream of the run.
	Log *eventlog.Log
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Outcome is the result of a pipeline run.
type Outcome struct {
	RunID           string             `json:"run_id"`
	Iterations      int                `json:"iterations"`
	Stable          bool               `json:"stable"`
	Halted          bool               `json:"halted"`
	BudgetExhausted bool               `json:"budget_exhausted"`
	Report          stability.Report   `json:"report"`
	Metrics         *stability.Metrics `json:"metrics,omitempty"` // earned only once stable
	Diagram         *diagram.Diagram   `json:"-"`
	State           *diagram.State     `json:"-"`
}

// Run executes the pipeline until stability, halt, or budget
// exhaustion. Metrics are computed only when the run ends stable;
// they are earned, not assumed.
func Run(ctx context.Context, d *diagram.Diagram, st *diagram.State, csi *diagram.CSI, rules []diagram.Rule, constraints []diagram.Constraint, opts Options) (*Outcome, error) {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	runID := uuid.New().String()
	log := opts.logger().With().Str("run_id", runID).Logger()
	crfOpts := crf.Options{Strict: opts.Strict, Registry: opts.Registry}
	stOpts := stability.Options{
		Tolerance:  opts.Tolerance,
		RequireAll: opts.RequireAll,
		Strict:     opts.Strict,
		Registry:   opts.Registry,
		MaxMatches: opts.MaxMatches,
	}

	out := &Outcome{RunID: runID, Diagram: d, State: st}
	record := func(e eventlog.Event) {
		if opts.Log != nil {
			e.RunID = runID
			e.DiagramID = d.ID
			opts.Log.Append(e)
		}
	}

	for out.Iterations < opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("engine: run %s canceled: %w", runID, err)
		}
		out.Iterations++

		prev := st
		st = crf.AssignLabelsWith(crfOpts, d, constraints, st, csi)
		gain := labelChangeRatio(prev, st)
		st = st.AppendLoopSample(gain)
		out.State = st
		log.Debug().Int("iteration", out.Iterations).Float64("loop_gain", gain).Msg("labels assigned")
		record(eventlog.Event{Kind: eventlog.KindLabel, Message: fmt.Sprintf("loop gain %.6g", gain)})

		rep := stability.Check(d, st, csi, rules, constraints, stOpts)
		record(eventlog.Event{Kind: eventlog.KindStability, Message: rep.Message})
		if rep.Stable {
			m := stability.ComputeMetrics(d, st)
			out.Stable = true
			out.Report = rep
			out.Metrics = &m
			log.Info().Int("iterations", out.Iterations).Strs("conditions", rep.Satisfied()).Msg("stable")
			return out, nil
		}

		step, err := rewrite.Run(d, st, csi, rules, constraints, rewrite.RunOptions{
			MaxIterations: 1,
			MaxMatches:    opts.MaxMatches,
			Strict:        opts.Strict,
			Registry:      opts.Registry,
		})
		if err != nil {
			return out, fmt.Errorf("engine: run %s: %w", runID, err)
		}
		for _, a := range step.Applications {
			log.Info().Str("rule", a.RuleID).Int("iteration", out.Iterations).Msg("rewrite applied")
			record(eventlog.Event{Kind: eventlog.KindApply, RuleID: a.RuleID})
		}
		for _, msg := range step.Messages {
			log.Debug().Str("detail", msg).Msg("resolution")
			record(eventlog.Event{Kind: eventlog.KindResolve, Message: msg})
		}
		d, st = step.Diagram, step.State
		out.Diagram, out.State = d, st

		if step.Halted {
			out.Halted = true
			out.Report = stability.Check(d, st, csi, rules, constraints, stOpts)
			log.Warn().Str("reason", st.HaltReason).Msg("halted")
			record(eventlog.Event{Kind: eventlog.KindHalt, Message: st.HaltReason})
			return out, nil
		}
	}

	out.BudgetExhausted = true
	out.Report = stability.Check(d, st, csi, rules, constraints, stOpts)
	log.Warn().Int("iterations", out.Iterations).Msg("iteration budget exhausted before stability")
	return out, nil
}

// RunPackage resolves a state's diagram and sphere out of a package
// and runs the pipeline on them.
func RunPackage(ctx context.Context, pkg *parser.Package, stateID string, opts Options) (*Outcome, error) {
	st, ok := pkg.State(stateID)
	if !ok {
		return nil, fmt.Errorf("engine: unknown state %q", stateID)
	}
	d, ok := pkg.Diagram(st.DiagramID)
	if !ok {
		return nil, fmt.Errorf("engine: state %s references unknown diagram %q", stateID, st.DiagramID)
	}
	return Run(ctx, d, st, pkg.CSIForState(st), pkg.Rules, pkg.Constraints, opts)
}

// labelChangeRatio measures how much of the label map changed between
// two states: changed keys over the union of keys. An empty union
// yields zero.
func labelChangeRatio(prev, curr *diagram.State) float64 {
	var prevLabels, currLabels map[string]diagram.Label
	if prev != nil {
		prevLabels = prev.Labels
	}
	if curr != nil {
		currLabels = curr.Labels
	}
	keys := make(map[string]bool, len(prevLabels)+len(currLabels))
	for k := range prevLabels {
		keys[k] = true
	}
	for k := range currLabels {
		keys[k] = true
	}
	if len(keys) == 0 {
		return 0
	}
	changed := 0
	for k := range keys {
		if prevLabels[k] != currLabels[k] {
			changed++
		}
	}
	return float64(changed) / float64(len(keys))
}
