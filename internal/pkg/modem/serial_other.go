//go:build !linux

package modem

import (
	"errors"
	"time"
)

// ErrSerialUnsupported is returned on platforms without termios support.
var ErrSerialUnsupported = errors.New("serial modem support requires linux")

// Serial is unavailable on this platform; Open always fails.
type Serial struct {
	Port      string
	Gap       time.Duration
	PollBound time.Duration
}

func NewSerial(port string, gap, pollBound time.Duration) *Serial {
	return &Serial{Port: port, Gap: gap, PollBound: pollBound}
}

func (s *Serial) Open(Mode) error {
	return &OpenError{Port: s.Port, Err: ErrSerialUnsupported}
}

func (s *Serial) Close() error { return nil }
func (s *Serial) Read([]byte) (int, error) { return 0, ErrNotOpen }
func (s *Serial) Write([]byte) (int, error) { return 0, ErrNotOpen }
func (s *Serial) Mode() Mode { return Blocked }
