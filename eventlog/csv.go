package eventlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"run_id", "seq", "time", "kind", "diagram_id", "rule_id", "constraint_id", "action", "message",
}

// WriteCSV writes the log as CSV with a fixed header row. Attribute
// maps do not survive the CSV form; use JSONL when they matter.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("eventlog: write header: %w", err)
	}
	for _, e := range l.Events {
		row := []string{
			e.RunID,
			strconv.Itoa(e.Seq),
			e.Time.UTC().Format(time.RFC3339Nano),
			string(e.Kind),
			e.DiagramID,
			e.RuleID,
			e.ConstraintID,
			e.Action,
			e.Message,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("eventlog: write event %d: %w", e.Seq, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the log to a CSV file.
func (l *Log) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eventlog: create %s: %w", path, err)
	}
	defer f.Close()
	return l.WriteCSV(f)
}

// ReadCSV parses a log written by WriteCSV.
func ReadCSV(r io.Reader) (*Log, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("eventlog: read csv: %w", err)
	}
	if len(records) == 0 {
		return NewLog(), nil
	}
	log := NewLog()
	for i, row := range records[1:] {
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("eventlog: row %d has %d columns, want %d", i+2, len(row), len(csvHeader))
		}
		seq, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("eventlog: row %d seq: %w", i+2, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, row[2])
		if err != nil {
			return nil, fmt.Errorf("eventlog: row %d time: %w", i+2, err)
		}
		log.Events = append(log.Events, Event{
			RunID:        row[0],
			Seq:          seq,
			Time:         ts,
			Kind:         Kind(row[3]),
			DiagramID:    row[4],
			RuleID:       row[5],
			ConstraintID: row[6],
			Action:       row[7],
			Message:      row[8],
		})
	}
	return log, nil
}
