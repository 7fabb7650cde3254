package liststore

import (
	"bytes"
	"os"
	"strings"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
)

// KeyEntryTag marks entries added by an operator key press rather than by hand.
const KeyEntryTag = "*-KEY ENTRY"

// DefaultGenericNames are NAME values a carrier supplies in place of the
// caller's name. Blacklisting one would block every caller sharing it.
var DefaultGenericNames = []string{"Cell Phone"}

// tailWindow is how much of the end of the file is inspected for trailing blank lines.
const tailWindow = 4096

// AppendOptions controls how a new entry is built.
type AppendOptions struct {
	Tag          string
	GenericNames []string
}

// BuildRecord builds a fixed-width record for rec. The token is the NAME
// field, or the NMBR field when the NAME is a generic carrier placeholder.
func BuildRecord(rec callerid.Record, layout Layout, opts AppendOptions) (string, error) {
	token := entryToken(rec, layout, opts.GenericNames)
	if token == "" {
		return "", ErrNoToken
	}

	date, ok := rec.Date(layout.DateWidth)
	if !ok {
		if rec.Received().IsZero() {
			return "", ErrNoDate
		}
		date = rec.Received().Format("010206")[:layout.DateWidth]
	}

	buf := bytes.Repeat([]byte{' '}, layout.TagOffset+len(opts.Tag))
	copy(buf, token)
	buf[len(token)] = layout.Terminator
	copy(buf[layout.DateOffset:], date)
	copy(buf[layout.TagOffset:], opts.Tag)
	return strings.TrimRight(string(buf), " "), nil
}

func entryToken(rec callerid.Record, layout Layout, generic []string) string {
	name, _ := rec.Field(callerid.FieldName)
	name = strings.TrimSpace(name)
	useNumber := name == ""
	for _, g := range generic {
		if g != "" && strings.Contains(name, g) {
			useNumber = true
			break
		}
	}

	token := name
	if useNumber {
		token, _ = rec.Field(callerid.FieldNmbr)
		token = strings.TrimSpace(token)
	}

	token = strings.ReplaceAll(token, string(layout.Terminator), "")
	token = strings.TrimLeft(token, string(layout.Comment)+" ")
	if len(token) > layout.MaxTerminatorColumn {
		token = strings.TrimRight(token[:layout.MaxTerminatorColumn], " ")
	}
	return token
}

// Append adds a new entry for rec at the end of the list. A blank line left
// at the end of the file by a text editor is reused rather than leaving an
// empty line before the entry, and a missing final newline is supplied.
func (l *List) Append(rec callerid.Record, opts AppendOptions) (Entry, error) {
	record, err := BuildRecord(rec, l.Layout, opts)
	if err != nil {
		return Entry{}, err
	}

	f, err := os.OpenFile(l.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return Entry{}, &StorageError{Op: "open", Path: l.Path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, &StorageError{Op: "stat", Path: l.Path, Err: err}
	}
	size := info.Size()

	n := int64(tailWindow)
	if size < n {
		n = size
	}
	tail := make([]byte, n)
	if n > 0 {
		if _, err := f.ReadAt(tail, size-n); err != nil {
			return Entry{}, &StorageError{Op: "read", Path: l.Path, Err: err}
		}
	}

	pos, eol, needEOL := appendPosition(tail, size)
	var out []byte
	if needEOL {
		out = append(out, eol...)
	}
	start := pos + int64(len(out))
	out = append(out, record...)
	out = append(out, eol...)

	if _, err := f.WriteAt(out, pos); err != nil {
		return Entry{}, &StorageError{Op: "write", Path: l.Path, Err: err}
	}
	if err := f.Truncate(pos + int64(len(out))); err != nil {
		return Entry{}, &StorageError{Op: "truncate", Path: l.Path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return Entry{}, &StorageError{Op: "sync", Path: l.Path, Err: err}
	}

	_, entry, err := ParseLine(record, l.Layout)
	if err != nil {
		return Entry{}, &FormatError{Offset: start, Record: record, Err: err}
	}
	entry.Offset = start
	return entry, nil
}

// appendPosition returns where a new record should be written given the
// last bytes of a file of the given size. Trailing blank lines, LF or CRLF,
// are dropped. eol is the line ending of the last record ("\r\n" when it
// ends that way, "\n" otherwise) and needEOL reports whether one must be
// written first to end the previous record.
func appendPosition(tail []byte, size int64) (pos int64, eol string, needEOL bool) {
	end := len(tail)
	for {
		n := eolLen(tail[:end])
		if n == 0 {
			break
		}
		prev := end - n
		if prev == 0 {
			// nothing but blank lines
			if int64(len(tail)) == size {
				end = 0
			}
			break
		}
		if eolLen(tail[:prev]) == 0 {
			break
		}
		end = prev
	}

	eol = "\n"
	if bytes.HasSuffix(tail[:end], []byte("\r\n")) {
		eol = "\r\n"
	}
	pos = size - int64(len(tail)-end)
	return pos, eol, end > 0 && eolLen(tail[:end]) == 0
}

// eolLen is the length of the line ending b ends with, 0 if none.
func eolLen(b []byte) int {
	switch {
	case bytes.HasSuffix(b, []byte("\r\n")):
		return 2
	case bytes.HasSuffix(b, []byte("\n")):
		return 1
	}
	return 0
}
