package modem_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenogenesi/jcblock/internal/pkg/modem"
	"github.com/xenogenesi/jcblock/internal/pkg/modem/modemtest"
)

type sleepRecorder struct {
	total time.Duration
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	s.total += d
	return ctx.Err()
}

func newModem(t *testing.T) (*modem.Modem, *modemtest.Transport, *sleepRecorder) {
	t.Helper()
	tr := modemtest.New()
	m := modem.New(tr, modem.DefaultOptions())
	rec := &sleepRecorder{}
	m.Sleep = rec.sleep
	require.NoError(t, m.Open())
	return m, tr, rec
}

func TestSend_OK(t *testing.T) {
	m, tr, _ := newModem(t)

	require.NoError(t, m.Send(context.Background(), "ATZ"))
	assert.Equal(t, []string{"ATZ"}, tr.Commands())
}

func TestSend_OKAfterNoise(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(cmd string) []string {
		return []string{cmd + "\r", "\r\nRING\r\n", "\r\nOK\r\n"}
	}

	assert.NoError(t, m.Send(context.Background(), "AT+VCID=1"))
}

func TestSend_NoAck(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(string) []string { return []string{"ERROR\r\n"} }

	err := m.Send(context.Background(), "AT+GCI=B5")
	require.Error(t, err)
	assert.ErrorIs(t, err, modem.ErrNoAck)

	var cmdErr *modem.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "AT+GCI=B5", cmdErr.Command)
}

func TestSend_SilentModemGivesUp(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(string) []string { return nil }

	idle := 0
	tr.Idle = func() { idle++ }

	err := m.Send(context.Background(), "ATZ")
	assert.ErrorIs(t, err, modem.ErrNoAck)
	assert.Equal(t, modem.DefaultOptions().AckAttempts, idle)
}

func TestSend_Cancelled(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(string) []string { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	tr.Idle = cancel

	err := m.Send(ctx, "ATZ")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSend_ClosedPort(t *testing.T) {
	m, _, _ := newModem(t)
	require.NoError(t, m.Close())

	err := m.Send(context.Background(), "ATZ")
	assert.ErrorIs(t, err, modem.ErrNotOpen)
}

func TestInit(t *testing.T) {
	tests := []struct {
		name     string
		callerID bool
		want     []string
	}{
		{"with caller id", true, []string{"ATZ", "AT+VCID=1"}},
		{"without caller id", false, []string{"ATZ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tr, rec := newModem(t)
			require.False(t, m.Initialized())

			require.NoError(t, m.Init(context.Background(), tt.callerID))
			assert.Equal(t, tt.want, tr.Commands())
			assert.True(t, m.Initialized())
			assert.Equal(t, []time.Duration{time.Second}, rec.calls)
		})
	}
}

func TestInit_ResetFailureStopsEarly(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(string) []string { return []string{"ERROR\r\n"} }

	err := m.Init(context.Background(), true)
	assert.ErrorIs(t, err, modem.ErrNoAck)
	assert.Equal(t, []string{"ATZ"}, tr.Commands())
	assert.False(t, m.Initialized())
}

func TestInit_CustomCommands(t *testing.T) {
	tr := modemtest.New()
	opts := modem.DefaultOptions()
	opts.CallerIDCommand = "AT#CID=1"
	m := modem.New(tr, opts)
	m.Sleep = func(context.Context, time.Duration) error { return nil }
	require.NoError(t, m.Open())

	require.NoError(t, m.Init(context.Background(), true))
	assert.Equal(t, []string{"ATZ", "AT#CID=1"}, tr.Commands())
}

func TestReopen(t *testing.T) {
	m, tr, rec := newModem(t)
	tr.Reset()

	require.NoError(t, m.Reopen(context.Background(), true))
	assert.Equal(t, 1, tr.Closes)
	assert.Equal(t, []modem.Mode{modem.Blocked}, tr.Opens)
	assert.Equal(t, []string{"ATZ", "AT+VCID=1"}, tr.Commands())
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, time.Second}, rec.calls)
}

func TestReopen_OpenFailure(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.OpenErr = errors.New("no such device")

	err := m.Reopen(context.Background(), true)
	var openErr *modem.OpenError
	assert.True(t, errors.As(err, &openErr))
}

func TestSetMode(t *testing.T) {
	m, tr, _ := newModem(t)

	require.NoError(t, m.SetMode(modem.Polled))
	assert.Equal(t, modem.Polled, tr.Mode())

	tr.QueuePolled('R', 0, 'I')
	b, ok, err := m.PollByte()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte('R'), b)

	_, ok, err = m.PollByte()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetMode(modem.Blocked))
	assert.Equal(t, modem.Blocked, tr.Mode())
}

func TestReadLine(t *testing.T) {
	m, tr, _ := newModem(t)
	line := "\r\nDATE = 0321\r\nTIME = 1405\r\nNMBR = 5551212\r\nNAME = SMITH JOHN\r\n"
	tr.Queue(line)

	got, err := m.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, line, string(got))
	assert.False(t, m.InBlockingRead())
}

func TestReadLine_Cancelled(t *testing.T) {
	m, tr, _ := newModem(t)
	ctx, cancel := context.WithCancel(context.Background())

	sawBlocked := false
	tr.Idle = func() {
		sawBlocked = m.InBlockingRead()
		cancel()
	}

	_, err := m.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sawBlocked)
	assert.False(t, m.InBlockingRead())
}

func TestShutdown(t *testing.T) {
	m, tr, _ := newModem(t)
	require.NoError(t, m.Init(context.Background(), true))
	tr.Reset()

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"ATZ"}, tr.Commands())
	assert.Equal(t, 1, tr.Closes)
	assert.False(t, m.Initialized())
}

func TestShutdown_Uninitialized(t *testing.T) {
	m, tr, _ := newModem(t)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, tr.Commands())
}

func TestHookCycle(t *testing.T) {
	m, tr, rec := newModem(t)
	term, err := modem.NewTerminator(modem.ProfileHook)
	require.NoError(t, err)
	assert.Equal(t, "hook", term.Name())

	require.NoError(t, term.Terminate(context.Background(), m))
	assert.Equal(t, []string{"ATZ", "ATH1", "ATH0", "ATZ", "AT+VCID=1"}, tr.Commands())
	assert.Equal(t, 2, tr.Closes)
	assert.True(t, m.Initialized())
	assert.Equal(t, 250*time.Millisecond*5+time.Second*4, rec.total)
}

func TestHookCycle_HookCommandFailureContinues(t *testing.T) {
	m, tr, _ := newModem(t)
	tr.Respond = func(cmd string) []string {
		if cmd == modem.CmdOffHook {
			return []string{"ERROR\r\n"}
		}
		return []string{"OK\r\n"}
	}

	require.NoError(t, modem.HookCycle{}.Terminate(context.Background(), m))
	assert.Equal(t, []string{"ATZ", "ATH1", "ATH0", "ATZ", "AT+VCID=1"}, tr.Commands())
}

func TestAnswerHangup(t *testing.T) {
	m, tr, _ := newModem(t)
	term, err := modem.NewTerminator(modem.ProfileAnswer)
	require.NoError(t, err)

	require.NoError(t, term.Terminate(context.Background(), m))
	assert.Equal(t, []string{"ATZ", "ATA", "+++", "ATH0", "ATZ", "AT+VCID=1"}, tr.Commands())
}

func TestNewTerminator_Unknown(t *testing.T) {
	_, err := modem.NewTerminator("pulse")
	assert.Error(t, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "blocked", modem.Blocked.String())
	assert.Equal(t, "polled", modem.Polled.String())
	assert.Equal(t, "Mode(7)", modem.Mode(7).String())
}
