// Package eventlog records what happened during a resolution run: one
// ordered stream of labeling, proposal, resolution, application, and
// stability events per run, exportable as JSONL or CSV.
package eventlog

import (
	"sort"
	"time"
)

// Kind classifies a run event.
type Kind string

const (
	KindLabel     Kind = "label"
	KindPropose   Kind = "propose"
	KindAuthorize Kind = "authorize"
	KindDeny      Kind = "deny"
	KindResolve   Kind = "resolve"
	KindApply     Kind = "apply"
	KindStability Kind = "stability"
	KindHalt      Kind = "halt"
)

// Event is a single step in a run.
type Event struct {
	RunID        string            `json:"run_id"`
	Seq          int               `json:"seq"`
	Time         time.Time         `json:"time"`
	Kind         Kind              `json:"kind"`
	DiagramID    string            `json:"diagram_id,omitempty"`
	RuleID       string            `json:"rule_id,omitempty"`
	ConstraintID string            `json:"constraint_id,omitempty"`
	Action       string            `json:"action,omitempty"` // resolution procedure, when Kind is resolve
	Message      string            `json:"message,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Log is an ordered collection of run events.
type Log struct {
	Events []Event
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an event, assigning the next sequence number and a
// timestamp when none is set.
func (l *Log) Append(e Event) {
	e.Seq = len(l.Events) + 1
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	l.Events = append(l.Events, e)
}

// ByKind returns the events of one kind, in order.
func (l *Log) ByKind(k Kind) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// ForRule returns the events touching one rule, in order.
func (l *Log) ForRule(ruleID string) []Event {
	var out []Event
	for _, e := range l.Events {
		if e.RuleID == ruleID {
			out = append(out, e)
		}
	}
	return out
}

// Runs returns the distinct run ids present in the log, sorted.
func (l *Log) Runs() []string {
	seen := make(map[string]bool)
	for _, e := range l.Events {
		seen[e.RunID] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	return len(l.Events)
}
