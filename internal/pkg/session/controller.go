package session

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
	"github.com/xenogenesi/jcblock/internal/pkg/modem"
)

// Lists is the whitelist and blacklist of the line.
type Lists interface {
	CheckWhitelist(rec callerid.Record) (liststore.Verdict, *liststore.Entry, error)
	CheckBlacklist(rec callerid.Record) (liststore.Verdict, *liststore.Entry, error)
	AppendBlacklist(rec callerid.Record) (liststore.Entry, error)
}

// CallLog records every caller-ID line received.
type CallLog interface {
	Append(rec callerid.Record) error
}

// ToneDetector listens for the authorization key press.
type ToneDetector interface {
	Listen(ctx context.Context, window time.Duration) (bool, error)
}

// Truncator prunes old records. It logs its own failures.
type Truncator interface {
	Run()
}

// Metrics observes screened calls.
type Metrics interface {
	ObserveCall(outcome string, took time.Duration)
	ObserveListError(list string)
}

// Timing holds the call-cycle durations.
type Timing struct {
	RingQuiet time.Duration
	RingPoll  time.Duration
	Window    time.Duration
	CueClicks int
	// ErrorBackoff is the pause before the line is reopened after a failure
	ErrorBackoff time.Duration
}

// DefaultTiming returns the stock durations.
func DefaultTiming() Timing {
	return Timing{
		RingQuiet:    constants.RingQuietInterval,
		RingPoll:     constants.RingPollInterval,
		Window:       constants.AuthorizationWindow,
		CueClicks:    3,
		ErrorBackoff: time.Second,
	}
}

// Controller runs one phone line. Tones, Truncator and Metrics are
// optional; a nil Tones disables the authorization window.
type Controller struct {
	Modem      *modem.Modem
	Lists      Lists
	CallLog    CallLog
	Terminator modem.Terminator
	Tones      ToneDetector
	Truncator  Truncator
	Gate       RingGate
	Metrics    Metrics
	Timing     Timing

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	state     atomic.Int32
	listening atomic.Bool
	// lineStale is set when the modem may have lost caller-ID mode
	lineStale bool
	// call is the logger of the call being screened
	call *slog.Logger
}

// New returns a controller with default timing and the wall clock.
func New(m *modem.Modem, lists Lists, log CallLog, term modem.Terminator) *Controller {
	return &Controller{
		Modem:      m,
		Lists:      lists,
		CallLog:    log,
		Terminator: term,
		Gate:       AnsweringMachineGate{Required: constants.RingsBeforeWindow},
		Timing:     DefaultTiming(),
		Now:        time.Now,
		Sleep:      modem.Sleep,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// InBlockingRead reports whether control is inside a read that cannot be
// interrupted: the serial line or the audio source.
func (c *Controller) InBlockingRead() bool {
	return c.Modem.InBlockingRead() || c.listening.Load()
}

func (c *Controller) log() *slog.Logger {
	if c.call == nil {
		return logger.Get()
	}
	return c.call
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return modem.Sleep(ctx, d)
	}
	return c.Sleep(ctx, d)
}

// Init opens the line and enables caller-ID. Errors are fatal to the caller.
func (c *Controller) Init(ctx context.Context) error {
	c.setState(StateInit)
	if err := c.Modem.Open(); err != nil {
		return err
	}
	if err := c.Modem.Init(ctx, true); err != nil {
		return err
	}
	logger.Info("Modem initialized, waiting for calls")
	c.setState(StateWaitingForCall)
	return nil
}

// WaitForCall blocks until the modem delivers a caller-ID line. Ring
// notifications and command echoes are discarded. The record is appended to
// the call log before it is returned; a log failure is reported but does not
// stop the call from being screened.
func (c *Controller) WaitForCall(ctx context.Context) (callerid.Record, error) {
	c.setState(StateWaitingForCall)
	for {
		raw, err := c.Modem.ReadLine(ctx)
		if err != nil {
			return callerid.Record{}, err
		}
		rec, ok := callerid.Normalize(string(raw), c.now())
		if !ok {
			logger.Debug("Ignoring modem line", "kind", callerid.Classify(string(raw)).String(), "raw", string(raw))
			continue
		}
		c.setState(StateLineReceived)
		if c.CallLog != nil {
			if err := c.CallLog.Append(rec); err != nil {
				logger.Warn("Failed to record call", "error", err)
			}
		}
		return rec, nil
	}
}

// Dispatch screens one call.
func (c *Controller) Dispatch(ctx context.Context, rec callerid.Record) Outcome {
	nmbr, _ := rec.Field(callerid.FieldNmbr)
	name, _ := rec.Field(callerid.FieldName)
	log := logger.With("call_id", uuid.NewString(), "number", nmbr, "name", name)
	c.call = log
	defer func() { c.call = nil }()
	log.Info("Incoming call")

	verdict, entry, err := c.Lists.CheckWhitelist(rec)
	if err != nil {
		log.Warn("Whitelist check failed, accepting call", "error", err)
		c.listError(liststore.Whitelist)
	}
	if verdict == liststore.Match {
		c.setState(StateAccepted)
		log.Info("Call accepted", "list", liststore.Whitelist.String(), "entry", entryToken(entry))
		return OutcomeWhitelisted
	}

	verdict, entry, err = c.Lists.CheckBlacklist(rec)
	if err != nil {
		log.Warn("Blacklist check failed, letting call through", "error", err)
		c.listError(liststore.Blacklist)
	}
	if verdict == liststore.Match {
		c.setState(StateTerminated)
		log.Info("Terminating blacklisted call", "entry", entryToken(entry))
		c.TerminateCall(ctx)
		if c.Truncator != nil {
			c.Truncator.Run()
		}
		return OutcomeBlacklisted
	}

	if c.Tones == nil {
		c.setState(StateAccepted)
		return OutcomeUnlisted
	}

	rings := 1 + c.PollForRings(ctx, c.Timing.RingQuiet)
	log.Debug("Ringing stopped", "rings", rings)
	if c.Gate != nil && !c.Gate.Allow(rings) {
		c.setState(StateAccepted)
		log.Info("Call not offered for blacklisting", "rings", rings, "gate", c.Gate.Name())
		return OutcomeUnlisted
	}

	if c.ArmAuthorizationWindow(ctx, rec) {
		return OutcomeAuthorized
	}
	return OutcomeWindowExpired
}

func (c *Controller) listError(kind liststore.Kind) {
	if c.Metrics != nil {
		c.Metrics.ObserveListError(kind.String())
	}
}

func entryToken(e *liststore.Entry) string {
	if e == nil {
		return ""
	}
	return e.Token
}

// TerminateCall hangs up with the configured terminator. Failures are
// logged; the line is left to ring.
func (c *Controller) TerminateCall(ctx context.Context) {
	if err := c.Terminator.Terminate(ctx, c.Modem); err != nil {
		c.log().Error("Failed to terminate call", "profile", c.Terminator.Name(), "error", err)
		c.lineStale = true
	}
}

// PollForRings counts ring notifications until none has arrived for quiet.
// The caller-ID line itself follows the first ring, which is not counted.
func (c *Controller) PollForRings(ctx context.Context, quiet time.Duration) int {
	c.setState(StatePolling)
	if err := c.Modem.SetMode(modem.Polled); err != nil {
		c.log().Warn("Failed to switch serial port to polled mode", "error", err)
	}
	defer func() {
		if err := c.Modem.SetMode(modem.Blocked); err != nil {
			c.log().Error("Failed to switch serial port to blocked mode", "error", err)
		}
	}()

	rings := 0
	last := c.now()
	for c.now().Sub(last) < quiet {
		b, ok, err := c.Modem.PollByte()
		if err != nil {
			logger.Debug("Polled read failed", "error", err)
		} else if ok && b == 'R' {
			last = c.now()
			rings++
		}
		if err := c.sleep(ctx, c.Timing.RingPoll); err != nil {
			break
		}
	}
	return rings
}

// ArmAuthorizationWindow clicks the line to cue the listener, then listens
// for the key press for the window duration. A press adds the caller to the
// blacklist. Caller-ID mode is restored either way.
func (c *Controller) ArmAuthorizationWindow(ctx context.Context, rec callerid.Record) bool {
	log := c.log()
	c.setState(StateAuthorizationWindow)
	defer c.restoreCallerID(ctx, log)

	c.cue(ctx, log)
	log.Info("Authorization window open", "window", c.Timing.Window)

	c.listening.Store(true)
	pressed, err := c.Tones.Listen(ctx, c.Timing.Window)
	c.listening.Store(false)
	if err != nil {
		log.Warn("Tone detection failed", "error", err)
		return false
	}
	if !pressed {
		log.Info("Authorization window expired")
		return false
	}

	entry, err := c.Lists.AppendBlacklist(rec)
	if err != nil {
		log.Error("Failed to add blacklist entry", "error", err)
		return false
	}
	log.Info("Caller added to blacklist", "entry", entry.Token)
	return true
}

// cue alternates off-hook and on-hook, starting off hook, once per click.
func (c *Controller) cue(ctx context.Context, log *slog.Logger) {
	clicks := max(c.Timing.CueClicks, 1)
	for i := 0; i < clicks; i++ {
		cmd := modem.CmdOffHook
		if i%2 == 1 {
			cmd = modem.CmdOnHook
		}
		if err := c.Modem.Send(ctx, cmd); err != nil {
			log.Warn("Cue click failed", "command", cmd, "error", err)
		}
	}
}

func (c *Controller) restoreCallerID(ctx context.Context, log *slog.Logger) {
	for _, cmd := range []string{c.Modem.Options.ResetCommand, c.Modem.Options.CallerIDCommand} {
		if err := c.Modem.Send(ctx, cmd); err != nil {
			log.Warn("Failed to restore caller ID mode", "command", cmd, "error", err)
			c.lineStale = true
		}
	}
}

// Run initializes the modem and screens calls until ctx is cancelled. Only
// initialization errors are returned. A failed read or a call that left the
// modem uninitialized makes Run reopen the line before the next read.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	for {
		if c.lineStale || !c.Modem.Initialized() {
			if !c.recoverLine(ctx) {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
		}
		rec, err := c.WaitForCall(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("Serial read failed", "error", err)
			c.lineStale = true
			continue
		}
		start := c.now()
		outcome := c.Dispatch(ctx, rec)
		logger.Debug("Call handled", "outcome", outcome.String())
		if c.Metrics != nil {
			c.Metrics.ObserveCall(outcome.String(), c.now().Sub(start))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// recoverLine waits out the error backoff, then reopens the line with
// caller-ID enabled.
func (c *Controller) recoverLine(ctx context.Context) bool {
	c.setState(StateInit)
	if err := c.sleep(ctx, c.Timing.ErrorBackoff); err != nil {
		return false
	}
	if err := c.Modem.Reopen(ctx, true); err != nil {
		logger.Error("Failed to restore modem line", "error", err)
		return false
	}
	c.lineStale = false
	logger.Info("Modem line restored, waiting for calls")
	return true
}
