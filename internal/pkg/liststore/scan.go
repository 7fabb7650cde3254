package liststore

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Line is one line of a list file as seen by a positional scan.
type Line struct {
	Offset int64
	Text   string
	Kind   LineKind
	Entry  Entry
	// Err is a *FormatError when Kind is LineMalformed
	Err error
}

// Scan reads r from the start and calls fn for every line with its byte
// offset. Scanning stops early when fn returns false. Offsets are only
// valid for the content read by this call.
func Scan(r io.Reader, layout Layout, fn func(Line) bool) error {
	br := bufio.NewReader(r)
	var offset int64
	for {
		raw, err := br.ReadString('\n')
		if len(raw) > 0 {
			text := strings.TrimSuffix(raw, "\n")
			kind, entry, perr := ParseLine(text, layout)
			line := Line{Offset: offset, Text: text, Kind: kind}
			if perr != nil {
				line.Err = &FormatError{Offset: offset, Record: text, Err: perr}
			} else if kind == LineEntry {
				entry.Offset = offset
				line.Entry = entry
			}
			if !fn(line) {
				return nil
			}
			offset += int64(len(raw))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Entries returns every well-formed entry in r, in file order, and the
// format errors found on the way.
func Entries(r io.Reader, layout Layout) ([]Entry, []error, error) {
	var entries []Entry
	var bad []error
	err := Scan(r, layout, func(l Line) bool {
		switch {
		case l.Err != nil:
			bad = append(bad, l.Err)
		case l.Kind == LineEntry:
			entries = append(entries, l.Entry)
		}
		return true
	})
	return entries, bad, err
}
