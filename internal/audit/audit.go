// Package audit keeps a CSV trail of reported events so that rejected
// inputs, fuzzy resolutions and amount mismatches can be reviewed later.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cleared-dev/pricesplit/internal/report"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	Level     string
	Component string
	Message   string
	Details   string
}

// Header is the CSV header for the audit log.
const Header = "timestamp,level,component,message,details"

const (
	numFields    = 5
	colTimestamp = 0
	colLevel     = 1
	colComponent = 2
	colMessage   = 3
	colDetails   = 4
)

// FromEvent converts a reported event to an Entry. Context pairs are
// rendered as key=value joined by ';' in key order.
func FromEvent(e report.Event) Entry {
	keys := e.Keys()
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return Entry{
		Timestamp: e.Time.UTC(),
		Level:     strings.ToLower(e.Level.String()),
		Component: e.Component,
		Message:   e.Message,
		Details:   strings.Join(pairs, ";"),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colLevel] = e.Level
	row[colComponent] = e.Component
	row[colMessage] = e.Message
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		Level:     record[colLevel],
		Component: record[colComponent],
		Message:   record[colMessage],
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from path. A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder is a report.Sink that buffers events as entries until Flush.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Handle buffers e.
func (r *Recorder) Handle(e report.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, FromEvent(e))
}

// Entries returns a copy of the buffered entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Flush appends the buffered entries to path and empties the buffer. The
// buffer is kept if the write fails.
func (r *Recorder) Flush(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	if err := Append(path, r.entries); err != nil {
		return err
	}
	r.entries = nil
	return nil
}
