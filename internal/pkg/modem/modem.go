package modem

import (
	"bytes"
	"context"
	"sync/atomic"
	"time"

	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// Standard command strings
const (
	CmdReset    = "ATZ"
	CmdCallerID = "AT+VCID=1"
	CmdOffHook  = "ATH1"
	CmdOnHook   = "ATH0"
	CmdAnswer   = "ATA"
	CmdEscape   = "+++"
)

// readBufferSize bounds one read from the line
const readBufferSize = 250

// Options tunes command handling.
type Options struct {
	ResetCommand    string
	CallerIDCommand string
	AckAttempts     int
	ResetSettle     time.Duration
	PortCycleSettle time.Duration
}

// DefaultOptions returns the stock command set and timing.
func DefaultOptions() Options {
	return Options{
		ResetCommand:    CmdReset,
		CallerIDCommand: CmdCallerID,
		AckAttempts:     constants.AckAttempts,
		ResetSettle:     constants.ResetSettle,
		PortCycleSettle: constants.PortCycleSettle,
	}
}

// Modem issues commands over a Transport and reads what the modem sends.
type Modem struct {
	Transport Transport
	Options   Options
	// Sleep pauses for d unless ctx ends first
	Sleep func(ctx context.Context, d time.Duration) error

	inRead      atomic.Bool
	initialized atomic.Bool
}

// New wraps t with opts.
func New(t Transport, opts Options) *Modem {
	if opts.AckAttempts <= 0 {
		opts.AckAttempts = constants.AckAttempts
	}
	if opts.ResetCommand == "" {
		opts.ResetCommand = CmdReset
	}
	if opts.CallerIDCommand == "" {
		opts.CallerIDCommand = CmdCallerID
	}
	return &Modem{Transport: t, Options: opts, Sleep: Sleep}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Modem) sleep(ctx context.Context, d time.Duration) error {
	if m.Sleep == nil {
		return Sleep(ctx, d)
	}
	return m.Sleep(ctx, d)
}

// InBlockingRead reports whether a read on the line is in progress.
func (m *Modem) InBlockingRead() bool {
	return m.inRead.Load()
}

// Initialized reports whether Init has completed since the last open.
func (m *Modem) Initialized() bool {
	return m.initialized.Load()
}

// Open opens the line in Blocked mode.
func (m *Modem) Open() error {
	m.initialized.Store(false)
	return m.Transport.Open(Blocked)
}

// Close closes the line.
func (m *Modem) Close() error {
	m.initialized.Store(false)
	return m.Transport.Close()
}

// Send writes cmd followed by a carriage return and reads responses until
// one contains OK, giving up after AckAttempts reads.
func (m *Modem) Send(ctx context.Context, cmd string) error {
	line := []byte(cmd + "\r")
	if n, err := m.Transport.Write(line); err != nil || n != len(line) {
		// the modem may still act on a partial write; wait for OK regardless
		logger.Warn("Modem command write failed", "command", cmd, "written", n, "error", err)
	}

	buf := make([]byte, readBufferSize)
	for try := 0; try < m.Options.AckAttempts; try++ {
		if err := ctx.Err(); err != nil {
			return &CommandError{Command: cmd, Err: err}
		}
		resp, err := m.readResponse(buf)
		if err != nil {
			return &CommandError{Command: cmd, Err: err}
		}
		if bytes.Contains(resp, []byte("OK")) {
			logger.Debug("Modem command acknowledged", "command", cmd)
			return nil
		}
	}
	logger.Debug("Modem command not acknowledged", "command", cmd)
	return &CommandError{Command: cmd, Err: ErrNoAck}
}

// readResponse reads until a CR or LF ends the data, or a read comes back
// empty.
func (m *Modem) readResponse(buf []byte) ([]byte, error) {
	m.inRead.Store(true)
	defer m.inRead.Store(false)

	off := 0
	for off < len(buf) {
		n, err := m.Transport.Read(buf[off:])
		if err != nil {
			return buf[:off], err
		}
		if n == 0 {
			break
		}
		off += n
		if last := buf[off-1]; last == '\n' || last == '\r' {
			break
		}
	}
	return buf[:off], nil
}

// Init resets the modem and, when withCallerID is set, enables caller-ID
// reporting.
func (m *Modem) Init(ctx context.Context, withCallerID bool) error {
	m.initialized.Store(false)
	if err := m.Send(ctx, m.Options.ResetCommand); err != nil {
		return err
	}
	if err := m.sleep(ctx, m.Options.ResetSettle); err != nil {
		return err
	}
	if withCallerID {
		if err := m.Send(ctx, m.Options.CallerIDCommand); err != nil {
			return err
		}
	}
	m.initialized.Store(true)
	return nil
}

// Reopen closes the line, dropping the modem back to command mode, then
// reopens it in Blocked mode and reinitializes.
func (m *Modem) Reopen(ctx context.Context, withCallerID bool) error {
	if err := m.Close(); err != nil {
		logger.Warn("Failed to close serial port", "error", err)
	}
	if err := m.sleep(ctx, m.Options.PortCycleSettle); err != nil {
		return err
	}
	if err := m.Transport.Open(Blocked); err != nil {
		return err
	}
	if err := m.sleep(ctx, m.Options.PortCycleSettle); err != nil {
		return err
	}
	return m.Init(ctx, withCallerID)
}

// SetMode reopens the line in mode without reinitializing the modem.
func (m *Modem) SetMode(mode Mode) error {
	if err := m.Transport.Close(); err != nil {
		logger.Warn("Failed to close serial port", "error", err)
	}
	return m.Transport.Open(mode)
}

// ReadLine waits for the next burst of data from the modem. It returns
// ctx.Err() once ctx is done.
func (m *Modem) ReadLine(ctx context.Context) ([]byte, error) {
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.inRead.Store(true)
		n, err := m.Transport.Read(buf)
		m.inRead.Store(false)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return append([]byte(nil), buf[:n]...), nil
		}
	}
}

// PollByte reads at most one byte without waiting. The line must be in
// Polled mode.
func (m *Modem) PollByte() (byte, bool, error) {
	var b [1]byte
	n, err := m.Transport.Read(b[:])
	if err != nil || n == 0 {
		return 0, false, err
	}
	return b[0], true, nil
}

// Shutdown resets an initialized modem and closes the line.
func (m *Modem) Shutdown(ctx context.Context) error {
	if m.initialized.Load() {
		if err := m.Send(ctx, m.Options.ResetCommand); err != nil {
			logger.Warn("Modem reset on shutdown failed", "error", err)
		}
	}
	return m.Close()
}
