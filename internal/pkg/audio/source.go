// Package audio delivers fixed-size blocks of mono 8 kHz samples from a
// microphone or a recording, scaled to [-1, 1).
package audio

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrOverrun means the capture device dropped samples
	ErrOverrun = errors.New("audio overrun")
	// ErrShortRead means fewer frames than requested were delivered
	ErrShortRead = errors.New("audio short read")
	// ErrNoDeadline means the underlying reader cannot bound its reads
	ErrNoDeadline = errors.New("audio source does not support read deadlines")
)

// Source delivers blocks of samples. ReadFrames blocks until len(buf)
// frames are available or fails with ErrOverrun, ErrShortRead or a
// device error.
type Source interface {
	ReadFrames(buf []float64) (int, error)
	io.Closer
}

// DeadlineSource is a Source whose blocking reads can be bounded in time.
// A read past the deadline fails with an error wrapping
// os.ErrDeadlineExceeded; the zero time clears the deadline.
type DeadlineSource interface {
	Source
	SetReadDeadline(t time.Time) error
}

// IsCaptureError reports whether err is a recoverable capture failure.
func IsCaptureError(err error) bool {
	return errors.Is(err, ErrOverrun) || errors.Is(err, ErrShortRead)
}
