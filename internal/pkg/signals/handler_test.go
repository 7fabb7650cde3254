package signals

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendSelf(t *testing.T, sig os.Signal) {
	t.Helper()
	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(sig))
}

func TestSetupHandler_CancelsContextOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := SetupHandler(ctx, cancel, nil, nil)
	defer cleanup()

	sendSelf(t, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context was not cancelled after signal")
	}
}

func TestSetupHandler_SecondSignalForcesWhenBlocked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	forced := make(chan struct{})
	cleanup := SetupHandler(ctx, cancel,
		func() bool { return true },
		func() { close(forced) })
	defer cleanup()

	sendSelf(t, syscall.SIGINT)
	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context was not cancelled after first signal")
	}

	sendSelf(t, syscall.SIGINT)
	select {
	case <-forced:
	case <-time.After(1 * time.Second):
		t.Fatal("Second signal did not force exit")
	}
}

func TestSetupHandler_SecondSignalIgnoredWhenNotBlocked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var forced atomic.Bool
	cleanup := SetupHandler(ctx, cancel,
		func() bool { return false },
		func() { forced.Store(true) })

	sendSelf(t, syscall.SIGTERM)
	<-ctx.Done()
	sendSelf(t, syscall.SIGTERM)
	time.Sleep(100 * time.Millisecond)

	cleanup()
	assert.False(t, forced.Load())
}

func TestSetupHandler_CleansUpOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cleanup := SetupHandler(ctx, cancel, nil, nil)
	cancel()
	time.Sleep(100 * time.Millisecond)

	// Cleanup should not panic or hang
	cleanup()
}
