package modem

import (
	"context"
	"fmt"
	"time"

	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// Terminator hangs up a call that is ringing and leaves the modem ready
// for the next call with caller-ID enabled.
type Terminator interface {
	Terminate(ctx context.Context, m *Modem) error
	Name() string
}

// Terminator profile names
const (
	ProfileHook   = "hook"
	ProfileAnswer = "answer"
)

// NewTerminator returns the terminator for a profile name.
func NewTerminator(profile string) (Terminator, error) {
	switch profile {
	case "", ProfileHook:
		return HookCycle{HookSettle: constants.HookSettle, PortCycleSettle: constants.PortCycleSettle}, nil
	case ProfileAnswer:
		return AnswerHangup{Guard: constants.EscapeGuard}, nil
	}
	return nil, fmt.Errorf("unknown modem profile %q", profile)
}

// HookCycle takes the line off hook and back on. The port is cycled first
// because the modem is in data mode after delivering caller-ID; caller-ID
// is left off on that first init to finish before the next ring.
type HookCycle struct {
	HookSettle      time.Duration
	PortCycleSettle time.Duration
}

func (HookCycle) Name() string { return ProfileHook }

func (h HookCycle) Terminate(ctx context.Context, m *Modem) error {
	if err := m.Reopen(ctx, false); err != nil {
		return err
	}
	if err := m.sleep(ctx, h.PortCycleSettle); err != nil {
		return err
	}
	sendBestEffort(ctx, m, CmdOffHook)
	if err := m.sleep(ctx, h.HookSettle); err != nil {
		return err
	}
	sendBestEffort(ctx, m, CmdOnHook)
	if err := m.sleep(ctx, h.HookSettle); err != nil {
		return err
	}
	return m.Reopen(ctx, true)
}

// AnswerHangup answers the call in data mode, escapes back to command mode
// and hangs up. Used with modems that ignore ATH1 while ringing.
type AnswerHangup struct {
	Guard time.Duration
}

func (AnswerHangup) Name() string { return ProfileAnswer }

func (a AnswerHangup) Terminate(ctx context.Context, m *Modem) error {
	if err := m.Reopen(ctx, false); err != nil {
		return err
	}
	sendBestEffort(ctx, m, CmdAnswer)
	if err := m.sleep(ctx, a.Guard); err != nil {
		return err
	}
	// the escape sequence takes no carriage return
	if _, err := m.Transport.Write([]byte(CmdEscape)); err != nil {
		logger.Warn("Modem escape write failed", "error", err)
	}
	if err := m.sleep(ctx, a.Guard); err != nil {
		return err
	}
	sendBestEffort(ctx, m, CmdOnHook)
	return m.Reopen(ctx, true)
}

func sendBestEffort(ctx context.Context, m *Modem, cmd string) {
	if err := m.Send(ctx, cmd); err != nil {
		logger.Warn("Modem command failed", "command", cmd, "error", err)
	}
}
