package eventlog

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleLog() *Log {
	l := NewLog()
	l.Append(Event{RunID: "run1", Kind: KindLabel, DiagramID: "d1", Message: "labels assigned"})
	l.Append(Event{RunID: "run1", Kind: KindPropose, DiagramID: "d1", RuleID: "r1"})
	l.Append(Event{RunID: "run1", Kind: KindDeny, RuleID: "r1", ConstraintID: "c1"})
	l.Append(Event{RunID: "run1", Kind: KindResolve, RuleID: "r1", Action: "defer"})
	l.Append(Event{RunID: "run2", Kind: KindApply, RuleID: "r2"})
	return l
}

func TestAppendAssignsSequence(t *testing.T) {
	l := sampleLog()
	for i, e := range l.Events {
		if e.Seq != i+1 {
			t.Errorf("event %d seq = %d", i, e.Seq)
		}
		if e.Time.IsZero() {
			t.Errorf("event %d has zero time", i)
		}
	}
}

func TestQueries(t *testing.T) {
	l := sampleLog()
	if got := l.ByKind(KindResolve); len(got) != 1 || got[0].Action != "defer" {
		t.Errorf("ByKind(resolve) = %+v", got)
	}
	if got := l.ForRule("r1"); len(got) != 3 {
		t.Errorf("ForRule(r1) = %d events, want 3", len(got))
	}
	if got := l.Runs(); len(got) != 2 || got[0] != "run1" || got[1] != "run2" {
		t.Errorf("Runs = %v", got)
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	l := sampleLog()
	var buf bytes.Buffer
	if err := l.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != l.Len() {
		t.Errorf("lines = %d, want %d", got, l.Len())
	}
	back, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if back.Len() != l.Len() {
		t.Fatalf("events = %d, want %d", back.Len(), l.Len())
	}
	if back.Events[3].Action != "defer" || back.Events[3].Kind != KindResolve {
		t.Errorf("event 4 = %+v", back.Events[3])
	}
}

func TestReadJSONLRejectsMalformedLine(t *testing.T) {
	in := `{"run_id":"run1","seq":1,"kind":"label","time":"2026-01-02T03:04:05Z"}
not json
`
	if _, err := ReadJSONL(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for malformed line")
	} else if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	l := sampleLog()
	// Pin times so formatting survives the trip exactly.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := range l.Events {
		l.Events[i].Time = base.Add(time.Duration(i) * time.Second)
	}
	var buf bytes.Buffer
	if err := l.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.Len() != l.Len() {
		t.Fatalf("events = %d, want %d", back.Len(), l.Len())
	}
	for i := range l.Events {
		if back.Events[i].Kind != l.Events[i].Kind || !back.Events[i].Time.Equal(l.Events[i].Time) {
			t.Errorf("event %d = %+v, want %+v", i, back.Events[i], l.Events[i])
		}
	}
}
