package liststore

import (
	"strings"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
)

// LineKind classifies one line of a list file.
type LineKind int

const (
	LineEntry LineKind = iota
	LineComment
	LineBlank
	LineMalformed
)

func (k LineKind) String() string {
	switch k {
	case LineEntry:
		return "entry"
	case LineComment:
		return "comment"
	case LineBlank:
		return "blank"
	default:
		return "malformed"
	}
}

// Entry is one data record of a list file.
type Entry struct {
	// Offset is the byte offset of the record in the file at scan time
	Offset int64
	// Token is the text before the terminator
	Token string
	// Date is the date-last-matched field
	Date string
	// Trailer is everything after the date field (comment, source tag)
	Trailer string
	// Raw is the whole record without its newline
	Raw string
}

// ParseLine parses a single record (without newline). Comment and blank
// lines are reported through the returned kind with a nil error.
func ParseLine(text string, layout Layout) (LineKind, Entry, error) {
	text = strings.TrimSuffix(text, "\r")
	switch {
	case strings.TrimSpace(text) == "":
		return LineBlank, Entry{}, nil
	case text[0] == layout.Comment:
		return LineComment, Entry{}, nil
	case len(text) < layout.MinRecordLength():
		return LineMalformed, Entry{}, ErrTooShort
	}

	term := strings.IndexByte(text, layout.Terminator)
	switch {
	case term < 0:
		return LineMalformed, Entry{}, ErrNoTerminator
	case term > layout.MaxTerminatorColumn:
		return LineMalformed, Entry{}, ErrTerminatorColumn
	case term == 0:
		return LineMalformed, Entry{}, ErrEmptyToken
	}

	end := layout.DateOffset + layout.DateWidth
	return LineEntry, Entry{
		Token:   text[:term],
		Date:    text[layout.DateOffset:end],
		Trailer: text[end:],
		Raw:     text,
	}, nil
}

// Matches reports whether the entry's token occurs in the caller-ID line.
// A token shaped like a phone number ("555-1212") also matches when its
// digits occur in the digits of the NMBR field.
func (e Entry) Matches(rec callerid.Record) bool {
	if strings.Contains(rec.Line(), e.Token) {
		return true
	}
	if !isPhoneShaped(e.Token) {
		return false
	}
	nmbr, ok := rec.Field(callerid.FieldNmbr)
	if !ok {
		return false
	}
	want := digitsOnly(e.Token)
	return want != "" && strings.Contains(digitsOnly(nmbr), want)
}

// isPhoneShaped is true for tokens made only of digits and dialing separators.
func isPhoneShaped(token string) bool {
	hasDigit := false
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '-' || c == '.' || c == '(' || c == ')' || c == '+' || c == ' ':
		default:
			return false
		}
	}
	return hasDigit
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
