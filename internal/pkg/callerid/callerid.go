// Package callerid turns the text a modem delivers between the first and
// second ring into a normalized caller-ID line.
//
// A normalized line looks like:
//
//	--DATE = 101426--TIME = 1343--NMBR = 5551212--NAME = JOHN DOE----
//
// Line breaks from the modem are replaced by '-', a space is guaranteed on
// both sides of every '=', and the two-digit year is appended to the DATE
// value because the caller-ID payload only carries month and day.
package callerid

import (
	"fmt"
	"strings"
	"time"
)

// Field names carried by a caller-ID payload
const (
	FieldDate = "DATE"
	FieldTime = "TIME"
	FieldNmbr = "NMBR"
	FieldName = "NAME"
)

const (
	fieldSep   = " = "
	valueEnd   = "--"
	ringMarker = "RING"
)

// Kind classifies a raw line read from the modem.
type Kind int

const (
	// KindNoise is anything that is neither a ring, an echo nor caller ID
	KindNoise Kind = iota
	// KindRing is a ring notification
	KindRing
	// KindEcho is the modem echoing a command or acknowledging one
	KindEcho
	// KindCallerID is a caller-ID payload
	KindCallerID
)

func (k Kind) String() string {
	switch k {
	case KindRing:
		return "ring"
	case KindEcho:
		return "echo"
	case KindCallerID:
		return "callerid"
	default:
		return "noise"
	}
}

// Record is one normalized caller-ID line. It is never mutated after Normalize.
type Record struct {
	line     string
	received time.Time
}

// Classify reports what kind of line the modem sent.
func Classify(raw string) Kind {
	if strings.Contains(raw, ringMarker) {
		return KindRing
	}
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, "\r", "\n"))
	if strings.HasPrefix(trimmed, "AT") || trimmed == "OK" {
		return KindEcho
	}
	for _, f := range []string{FieldDate, FieldNmbr, FieldName} {
		if strings.Contains(raw, f) && strings.Contains(raw, "=") {
			return KindCallerID
		}
	}
	return KindNoise
}

// Normalize builds a Record from raw modem text. It returns false if the
// text is not a caller-ID payload.
func Normalize(raw string, now time.Time) (Record, bool) {
	if Classify(raw) != KindCallerID {
		return Record{}, false
	}

	s := strings.NewReplacer("\r", "-", "\n", "-").Replace(raw)
	s = spaceEquals(s)
	s = insertYear(s, now.Year()%100)

	return Record{line: s + "\n", received: now}, true
}

// FromLine wraps an already normalized line, e.g. one read back from the call log.
func FromLine(line string) Record {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	return Record{line: line}
}

// spaceEquals makes sure every '=' has a space on each side; some modems omit them.
func spaceEquals(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '=' {
			b.WriteByte(c)
			continue
		}
		if i == 0 || s[i-1] != ' ' {
			b.WriteByte(' ')
		}
		b.WriteByte('=')
		if i+1 >= len(s) || s[i+1] != ' ' {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// insertYear appends the two-digit year to a four-digit MMDD DATE value.
func insertYear(s string, year int) string {
	idx := strings.Index(s, FieldDate+fieldSep)
	if idx < 0 {
		return s
	}
	start := idx + len(FieldDate+fieldSep)
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end-start != 4 {
		return s
	}
	return s[:end] + fmt.Sprintf("%02d", year) + s[end:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Line returns the normalized line including its trailing newline.
func (r Record) Line() string {
	return r.line
}

// String returns the line without its trailing newline.
func (r Record) String() string {
	return strings.TrimSuffix(r.line, "\n")
}

// Received is when the record was normalized.
func (r Record) Received() time.Time {
	return r.received
}

// IsZero reports whether r holds no line.
func (r Record) IsZero() bool {
	return r.line == ""
}

// Field returns the value of a named field, e.g. Field(FieldNmbr).
func (r Record) Field(name string) (string, bool) {
	prefix := name + fieldSep
	idx := strings.Index(r.line, prefix)
	if idx < 0 {
		return "", false
	}
	v := r.line[idx+len(prefix):]
	if end := strings.Index(v, valueEnd); end >= 0 {
		v = v[:end]
	}
	v = strings.TrimRight(v, "\n")
	return v, true
}

// Date returns the first width characters of the DATE value.
func (r Record) Date(width int) (string, bool) {
	v, ok := r.Field(FieldDate)
	if !ok || len(v) < width {
		return "", false
	}
	return v[:width], true
}
