// Package calllog appends one normalized caller-ID line per incoming call
// to an append-only history file.
package calllog

import (
	"bufio"
	"fmt"
	"os"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
)

// Log is the call history file. It is reopened for every append so that
// external edits and truncation are tolerated.
type Log struct {
	Path string
}

// New returns a log writing to path.
func New(path string) *Log {
	return &Log{Path: path}
}

// Append writes rec to the end of the log and flushes it to disk.
func (l *Log) Append(rec callerid.Record) error {
	f, err := os.OpenFile(l.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open call log %s: %w", l.Path, err)
	}
	if _, err := f.WriteString(rec.Line()); err != nil {
		f.Close()
		return fmt.Errorf("write call log %s: %w", l.Path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync call log %s: %w", l.Path, err)
	}
	return f.Close()
}

// Records reads every line of the log back as records, oldest first.
func (l *Log) Records() ([]callerid.Record, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open call log %s: %w", l.Path, err)
	}
	defer f.Close()

	var recs []callerid.Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			recs = append(recs, callerid.FromLine(line))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read call log %s: %w", l.Path, err)
	}
	return recs, nil
}
