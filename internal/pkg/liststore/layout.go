package liststore

import "fmt"

// Layout describes the fixed-width columns of a list file record:
//
//	<token><terminator><padding><date at DateOffset, DateWidth wide><trailing text>
//
// A rewrite of the date field never changes the length of a record.
type Layout struct {
	// Terminator ends the match token
	Terminator byte `mapstructure:"terminator"`
	// Comment starts a comment line
	Comment byte `mapstructure:"comment"`
	// MaxTerminatorColumn is the last zero-based column the terminator may occupy
	MaxTerminatorColumn int `mapstructure:"max_terminator_column"`
	// DateOffset is the zero-based column of the date-last-matched field
	DateOffset int `mapstructure:"date_offset"`
	// DateWidth is the width of the date field: 4 (MMDD) or 6 (MMDDYY)
	DateWidth int `mapstructure:"date_width"`
	// TagOffset is the column where a source tag starts in appended records
	TagOffset int `mapstructure:"tag_offset"`
}

// DefaultLayout is the layout of the six-character date files.
func DefaultLayout() Layout {
	return Layout{
		Terminator:          '?',
		Comment:             '#',
		MaxTerminatorColumn: 18,
		DateOffset:          19,
		DateWidth:           6,
		TagOffset:           33,
	}
}

// MinRecordLength is the shortest record (newline excluded) that can hold the date field.
func (l Layout) MinRecordLength() int {
	return l.DateOffset + l.DateWidth
}

// Validate checks that the columns are internally consistent.
func (l Layout) Validate() error {
	switch {
	case l.Terminator == 0:
		return fmt.Errorf("layout: terminator is required")
	case l.Terminator == l.Comment:
		return fmt.Errorf("layout: terminator and comment marker must differ")
	case l.DateWidth != 4 && l.DateWidth != 6:
		return fmt.Errorf("layout: date width must be 4 or 6, got %d", l.DateWidth)
	case l.MaxTerminatorColumn < 1:
		return fmt.Errorf("layout: max terminator column must be positive, got %d", l.MaxTerminatorColumn)
	case l.MaxTerminatorColumn >= l.DateOffset:
		return fmt.Errorf("layout: terminator window (%d) overlaps date offset (%d)", l.MaxTerminatorColumn, l.DateOffset)
	case l.TagOffset < l.DateOffset+l.DateWidth:
		return fmt.Errorf("layout: tag offset (%d) overlaps date field ending at %d", l.TagOffset, l.DateOffset+l.DateWidth)
	}
	return nil
}
