// Package liststore matches caller-ID lines against the whitelist and
// blacklist record files and records match history in those same files.
//
// Files are reopened and rescanned from the top on every pass so edits made
// by an operator while the appliance runs are always observed. No offset or
// parsed state survives between passes.
package liststore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// Kind selects the failure policy of a list.
type Kind int

const (
	Whitelist Kind = iota
	Blacklist
)

func (k Kind) String() string {
	if k == Whitelist {
		return "whitelist"
	}
	return "blacklist"
}

// Verdict is the outcome of checking a list.
type Verdict int

const (
	NoMatch Verdict = iota
	Match
)

func (v Verdict) String() string {
	if v == Match {
		return "match"
	}
	return "no-match"
}

// List is one record file.
type List struct {
	Kind   Kind
	Path   string
	Layout Layout
	// Optional lists treat a missing file as an empty list
	Optional bool
}

// failSafe is the verdict returned when the list cannot be checked: a
// whitelist accepts the call, a blacklist does not terminate it.
func (l *List) failSafe() Verdict {
	if l.Kind == Whitelist {
		return Match
	}
	return NoMatch
}

// Check scans the list for the first entry whose token occurs in rec. On a
// match the entry's date field is rewritten in place with the call's date
// and forced to disk.
//
// The returned verdict is always safe to act on. A non-nil error explains
// a degraded result: storage failures resolve to the list's fail-safe
// verdict, a missing DATE field still reports the match.
func (l *List) Check(rec callerid.Record) (Verdict, *Entry, error) {
	log := logger.With("list", l.Kind.String(), "path", l.Path)

	f, err := os.OpenFile(l.Path, os.O_RDWR, 0)
	if err != nil {
		if l.Optional && errors.Is(err, fs.ErrNotExist) {
			return NoMatch, nil, nil
		}
		return l.failSafe(), nil, &StorageError{Op: "open", Path: l.Path, Err: err}
	}
	defer f.Close()

	var hit *Entry
	err = Scan(f, l.Layout, func(line Line) bool {
		if line.Err != nil {
			log.Warn("Record ignored, edit the file to fix it", "offset", line.Offset, "error", line.Err)
			return true
		}
		if line.Kind == LineEntry && line.Entry.Matches(rec) {
			e := line.Entry
			hit = &e
			return false
		}
		return true
	})
	if err != nil {
		return l.failSafe(), nil, &StorageError{Op: "read", Path: l.Path, Err: err}
	}
	if hit == nil {
		return NoMatch, nil, nil
	}

	log.Info("Entry matches", "token", hit.Token, "offset", hit.Offset)

	date, ok := rec.Date(l.Layout.DateWidth)
	if !ok {
		return Match, hit, ErrNoDate
	}
	if err := RewriteDate(f, l.Layout, hit, date); err != nil {
		return l.failSafe(), hit, &StorageError{Op: "rewrite", Path: l.Path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return l.failSafe(), hit, &StorageError{Op: "sync", Path: l.Path, Err: err}
	}
	return Match, hit, nil
}

// RewriteDate overwrites the date field of e in place. Only the date bytes
// are written so the record length never changes.
func RewriteDate(w io.WriterAt, layout Layout, e *Entry, date string) error {
	if len(date) != layout.DateWidth {
		return fmt.Errorf("date %q is not %d characters wide", date, layout.DateWidth)
	}
	if _, err := w.WriteAt([]byte(date), e.Offset+int64(layout.DateOffset)); err != nil {
		return err
	}
	e.Date = date
	if len(e.Raw) >= layout.DateOffset+layout.DateWidth {
		e.Raw = e.Raw[:layout.DateOffset] + date + e.Raw[layout.DateOffset+layout.DateWidth:]
	}
	return nil
}

// Read returns every line of the list with its kind, for reporting.
func (l *List) Read() ([]Line, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if l.Optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "open", Path: l.Path, Err: err}
	}
	defer f.Close()

	var lines []Line
	if err := Scan(f, l.Layout, func(line Line) bool {
		lines = append(lines, line)
		return true
	}); err != nil {
		return nil, &StorageError{Op: "read", Path: l.Path, Err: err}
	}
	return lines, nil
}

// Find returns the first entry matching rec without touching the file.
// A missing optional list finds nothing.
func (l *List) Find(rec callerid.Record) (*Entry, error) {
	lines, err := l.Read()
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.Err == nil && line.Kind == LineEntry && line.Entry.Matches(rec) {
			e := line.Entry
			return &e, nil
		}
	}
	return nil, nil
}
