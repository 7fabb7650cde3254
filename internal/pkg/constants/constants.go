// Package constants provides shared constants used across jcblock components.
package constants

import "time"

// Modem handshake timing
const (
	// AckAttempts is the number of response reads allowed before a command
	// is considered unacknowledged
	AckAttempts = 20

	// ResetSettle is the pause after the reset command before the next command
	ResetSettle = 1 * time.Second

	// PortCycleSettle is the pause on each side of a close/reopen of the serial port
	PortCycleSettle = 250 * time.Millisecond

	// HookSettle is the pause between off-hook and on-hook when terminating a call
	HookSettle = 1 * time.Second

	// EscapeGuard is the silence the modem needs on each side of "+++"
	EscapeGuard = 1 * time.Second

	// InterCharacterGap ends a blocked read once the line goes quiet
	InterCharacterGap = 100 * time.Millisecond

	// BlockedReadPoll bounds a single blocked read so shutdown is observed
	BlockedReadPoll = 1 * time.Second
)

// Call timing
const (
	// RingQuietInterval is slightly longer than the six-second inter-ring spacing
	RingQuietInterval = 7 * time.Second

	// RingPollInterval is the sleep between polled reads while counting rings
	RingPollInterval = 100 * time.Millisecond

	// AuthorizationWindow is how long a tone press is accepted after the cue clicks
	AuthorizationWindow = 10 * time.Second

	// RingsBeforeWindow is the ring count at which the window is offered when
	// an answering machine shares the line
	RingsBeforeWindow = 3
)

// Audio
const (
	// SampleRate is the fixed capture rate in Hz
	SampleRate = 8000

	// FramesPerRead is the number of frames requested from the capture device per read
	FramesPerRead = 128
)

// Truncation
const (
	// TruncateInterval is the minimum time between truncation runs
	TruncateInterval = 30 * 24 * time.Hour

	// TruncateMaxAge is the age after which call log lines and unused
	// blacklist entries are removed (about nine months)
	TruncateMaxAge = 270 * 24 * time.Hour
)

// SignalChannelBuffer is the buffer size for OS signal channels
const SignalChannelBuffer = 1
