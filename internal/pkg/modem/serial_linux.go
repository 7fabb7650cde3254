//go:build linux

package modem

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// blockedMinChars is larger than any response or caller-ID line, so a
// blocked read always ends on the inter-character gap.
const blockedMinChars = 80

// Serial is a termios serial line at 1200 baud 8N1 with hardware flow
// control, raw input and no output processing.
type Serial struct {
	Port string
	// Gap is the inter-character timeout that ends a blocked read
	Gap time.Duration
	// PollBound caps how long a blocked read waits for the first byte
	PollBound time.Duration

	mu   sync.Mutex
	fd   int
	open bool
	mode Mode
}

// NewSerial returns a closed serial line for port.
func NewSerial(port string, gap, pollBound time.Duration) *Serial {
	return &Serial{Port: port, Gap: gap, PollBound: pollBound, fd: -1}
}

// Open opens the port without making it the controlling terminal and
// applies the line settings for mode.
func (s *Serial) Open(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		unix.Close(s.fd)
		s.open = false
	}

	fd, err := unix.Open(s.Port, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return &OpenError{Port: s.Port, Err: err}
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return &OpenError{Port: s.Port, Err: err}
	}
	if err := configure(fd, mode, s.Gap); err != nil {
		unix.Close(fd)
		return &OpenError{Port: s.Port, Err: err}
	}

	s.fd = fd
	s.open = true
	s.mode = mode
	return nil
}

func configure(fd int, mode Mode, gap time.Duration) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	t.Cflag &^= unix.PARENB | unix.CSTOPB | unix.CSIZE | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CRTSCTS | unix.CLOCAL | unix.CREAD | unix.B1200
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG
	t.Oflag &^= unix.OPOST
	t.Ispeed = unix.B1200
	t.Ospeed = unix.B1200

	switch mode {
	case Blocked:
		t.Cc[unix.VMIN] = blockedMinChars
		t.Cc[unix.VTIME] = deciseconds(gap)
	default:
		t.Cc[unix.VMIN] = 0
		t.Cc[unix.VTIME] = 0
	}

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func deciseconds(d time.Duration) uint8 {
	ds := d / (100 * time.Millisecond)
	switch {
	case ds < 1:
		return 1
	case ds > 255:
		return 255
	}
	return uint8(ds)
}

// Close closes the port, dropping DTR.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// Read reads whatever the modem sent. In Blocked mode it first waits up
// to PollBound for input and returns 0, nil if none arrived.
func (s *Serial) Read(p []byte) (int, error) {
	s.mu.Lock()
	fd, open, mode := s.fd, s.open, s.mode
	s.mu.Unlock()
	if !open {
		return 0, ErrNotOpen
	}

	if mode == Blocked && s.PollBound > 0 {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(s.PollBound/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				return 0, nil
			}
			return 0, err
		}
		if n == 0 {
			return 0, nil
		}
	}

	n, err := unix.Read(fd, p)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	fd, open := s.fd, s.open
	s.mu.Unlock()
	if !open {
		return 0, ErrNotOpen
	}
	return unix.Write(fd, p)
}

func (s *Serial) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
