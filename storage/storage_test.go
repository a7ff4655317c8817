package storage

import (
	"path/filepath"
	"testing"

	"github.com/sid-xyz/go-sid/diagram"
	"github.com/sid-xyz/go-sid/engine"
	"github.com/sid-xyz/go-sid/eventlog"
	"github.com/sid-xyz/go-sid/parser"
	"github.com/sid-xyz/go-sid/stability"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOutcome(t *testing.T, runID string) *engine.Outcome {
	t.Helper()
	d, err := parser.ParseDiagram("d1", "C(P(Freedom), P(Gradient))")
	if err != nil {
		t.Fatalf("ParseDiagram failed: %v", err)
	}
	return &engine.Outcome{
		RunID:      runID,
		Iterations: 3,
		Stable:     true,
		Report: stability.Report{
			Stable: true,
			Conditions: []stability.Condition{
				{Name: stability.CondInvariantTransport, Satisfied: true},
			},
		},
		Metrics: &stability.Metrics{AdmissibleVolume: 1, TransportFidelity: 1, CollapseRatio: 0.25},
		Diagram: d,
		State:   &diagram.State{ID: "s1", DiagramID: "d1", CSIID: "csi1"},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	out := sampleOutcome(t, "run-1")

	log := eventlog.NewLog()
	log.Append(eventlog.Event{RunID: "run-1", Kind: eventlog.KindLabel, DiagramID: "d1"})
	log.Append(eventlog.Event{RunID: "run-1", Kind: eventlog.KindApply, RuleID: "r1", Message: "applied"})
	log.Append(eventlog.Event{RunID: "other", Kind: eventlog.KindHalt})

	if err := s.SaveRun(out, "s1", log); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	r, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if r.StateID != "s1" || r.DiagramID != "d1" {
		t.Errorf("got state %q diagram %q, want s1 d1", r.StateID, r.DiagramID)
	}
	if !r.Stable || r.Halted || r.BudgetExhausted {
		t.Errorf("unexpected flags: %+v", r)
	}
	if r.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", r.Iterations)
	}
	if r.ReportJSON == "" || r.MetricsJSON == "" {
		t.Error("expected report and metrics JSON to be persisted")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun("missing"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}

func TestEventsFiltersByRun(t *testing.T) {
	s := openTestStore(t)
	out := sampleOutcome(t, "run-1")

	log := eventlog.NewLog()
	log.Append(eventlog.Event{RunID: "run-1", Kind: eventlog.KindLabel, DiagramID: "d1"})
	log.Append(eventlog.Event{RunID: "other", Kind: eventlog.KindHalt})
	log.Append(eventlog.Event{RunID: "run-1", Kind: eventlog.KindApply, RuleID: "r1"})

	if err := s.SaveRun(out, "s1", log); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	loaded, err := s.Events("run-1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("got %d events, want 2", loaded.Len())
	}
	if loaded.Events[0].Kind != eventlog.KindLabel || loaded.Events[1].Kind != eventlog.KindApply {
		t.Errorf("events out of order: %+v", loaded.Events)
	}
	if loaded.Events[1].RuleID != "r1" {
		t.Errorf("rule id = %q, want r1", loaded.Events[1].RuleID)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := s.SaveRun(sampleOutcome(t, id), "s1", nil); err != nil {
			t.Fatalf("SaveRun %s failed: %v", id, err)
		}
	}
	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	all, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
}
