package liststore

import (
	"errors"
	"fmt"
)

var (
	// ErrTooShort means a record cannot hold the date field
	ErrTooShort = errors.New("record too short to hold date field")
	// ErrNoTerminator means a record has no token terminator
	ErrNoTerminator = errors.New("token terminator missing")
	// ErrTerminatorColumn means the terminator sits outside the allowed leading columns
	ErrTerminatorColumn = errors.New("token terminator outside allowed columns")
	// ErrEmptyToken means the terminator is the first character of the record
	ErrEmptyToken = errors.New("empty match token")
	// ErrNoDate means the caller-ID line has no usable DATE field
	ErrNoDate = errors.New("caller ID has no DATE field")
	// ErrNoToken means no NAME or NMBR could be taken from the caller-ID line
	ErrNoToken = errors.New("caller ID has no NAME or NMBR field")
)

// FormatError is a malformed list record. The record is skipped and the
// scan continues.
type FormatError struct {
	Offset int64
	Record string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("record at offset %d: %v: %q", e.Offset, e.Err, e.Record)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// StorageError is a failure to reopen, read, seek, write or flush a list file.
// It aborts the current operation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
