// Package run is the call-screening appliance command.
package run

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/logger"
	"github.com/xenogenesi/jcblock/internal/pkg/modem"
	"github.com/xenogenesi/jcblock/internal/pkg/signals"
	"github.com/xenogenesi/jcblock/internal/pkg/version"
)

const shutdownTimeout = 5 * time.Second

var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen calls on the modem line",
	Long: `Wait for caller-ID on the modem, terminate blacklisted calls and
offer an authorization window to unlisted callers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Execute(cmd.Context())
	},
}

// Execute runs the appliance until a signal arrives or ctx is cancelled.
// Only startup failures are returned.
func Execute(ctx context.Context) error {
	cfg := config.GetConfig()
	t := modem.NewSerial(cfg.Modem.Port, cfg.Modem.ReadTimeout, cfg.Modem.BlockedPoll)
	app, err := NewApp(cfg, t)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cleanup := signals.SetupHandler(ctx, cancel, app.Controller.InBlockingRead, signals.ForceExit)
	defer cleanup()

	if app.Metrics != nil {
		app.Metrics.Start(cfg.Metrics.Listen)
	}

	logger.Info("Starting jcblock",
		"version", version.GetShortVersion(),
		"port", cfg.Modem.Port,
		"profile", cfg.Modem.Profile,
		"tones", cfg.Tones.Enabled)

	runErr := app.Controller.Run(ctx)

	sctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := app.Modem.Shutdown(sctx); err != nil {
		logger.Warn("Modem shutdown failed", "error", err)
	}
	if app.Metrics != nil {
		if err := app.Metrics.Shutdown(sctx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}
	if runErr != nil {
		logger.Error("Startup failed", "error", runErr)
		return runErr
	}
	logger.Info("jcblock stopped")
	return nil
}
