package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

// SetupHandler cancels ctx on the first SIGINT, SIGTERM or SIGHUP.
// Shutdown is cooperative, so a signal that arrives after that while
// blocked reports true calls force: the process is stuck in a read that
// cancellation cannot reach (typically a modem that is not connected).
// blocked and force may be nil.
// Returns a cleanup function that should be called when the signal handler is no longer needed
func SetupHandler(ctx context.Context, cancel context.CancelFunc, blocked func() bool, force func()) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		cancelled := false
		ctxDone := ctx.Done()
		for {
			select {
			case sig := <-sigCh:
				if !cancelled {
					logger.Info("Received signal, initiating shutdown", "signal", sig.String())
					cancelled = true
					cancel()
					continue
				}
				if blocked != nil && blocked() && force != nil {
					logger.Warn("Received signal during blocking read, forcing exit", "signal", sig.String())
					force()
					return
				}
				logger.Info("Shutdown already in progress", "signal", sig.String())
			case <-ctxDone:
				// keep listening so a stuck read can still be forced
				cancelled = true
				ctxDone = nil
			case <-stop:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(stop)
		<-done
	}
}

// ForceExit terminates the process immediately with a failure status.
func ForceExit() {
	os.Exit(1)
}
