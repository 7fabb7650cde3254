// Package modem drives a Hayes-compatible voice/data modem over a serial
// line: command handshakes, caller-ID reception and the hook sequences
// used to terminate a call.
package modem

import (
	"errors"
	"fmt"
)

// Mode selects how reads behave on the serial line.
type Mode int

const (
	// Blocked reads wait for data and return once the line goes quiet
	Blocked Mode = iota
	// Polled reads return immediately, possibly with nothing
	Polled
)

func (m Mode) String() string {
	switch m {
	case Blocked:
		return "blocked"
	case Polled:
		return "polled"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Transport is a serial line that can be reopened in either read mode.
// Closing drops DTR, which returns the modem to command mode.
//
// In Blocked mode Read may return 0, nil when no data arrived within the
// transport's poll bound; callers loop and check for cancellation.
type Transport interface {
	Open(mode Mode) error
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Mode() Mode
}

var (
	// ErrNoAck means the modem never answered a command with OK
	ErrNoAck = errors.New("no OK response from modem")
	// ErrNotOpen is returned by transports used while closed
	ErrNotOpen = errors.New("serial port not open")
)

// OpenError reports a serial port that could not be opened or configured.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open serial port %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// CommandError reports a command the modem did not acknowledge.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("modem command %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
