package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONL writes the log one JSON object per line.
func (l *Log) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range l.Events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("eventlog: encode event %d: %w", e.Seq, err)
		}
	}
	return nil
}

// SaveJSONL writes the log to a JSONL file.
func (l *Log) SaveJSONL(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("eventlog: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := l.WriteJSONL(w); err != nil {
		return err
	}
	return w.Flush()
}

// ReadJSONL parses a log from JSONL input. Blank lines are skipped;
// a malformed line fails the whole read with its line number.
func ReadJSONL(r io.Reader) (*Log, error) {
	log := NewLog()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("eventlog: line %d: %w", line, err)
		}
		log.Events = append(log.Events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: read: %w", err)
	}
	return log, nil
}

// LoadJSONL reads a log from a JSONL file.
func LoadJSONL(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSONL(f)
}
