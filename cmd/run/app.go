package run

import (
	"github.com/xenogenesi/jcblock/internal/pkg/calllog"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/liststore"
	"github.com/xenogenesi/jcblock/internal/pkg/metrics"
	"github.com/xenogenesi/jcblock/internal/pkg/modem"
	"github.com/xenogenesi/jcblock/internal/pkg/session"
	"github.com/xenogenesi/jcblock/internal/pkg/tones"
)

// App is a fully wired phone line.
type App struct {
	Modem      *modem.Modem
	Store      *liststore.Store
	Controller *session.Controller
	// Metrics is nil unless metrics.enabled is set
	Metrics *metrics.Exporter
}

// NewApp wires the controller for cfg on top of transport t.
func NewApp(cfg *config.Config, t modem.Transport) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	store, err := liststore.NewStore(cfg.Files.Whitelist, cfg.Files.Blacklist, layout, cfg.AppendOptions())
	if err != nil {
		return nil, err
	}
	term, err := modem.NewTerminator(cfg.Modem.Profile)
	if err != nil {
		return nil, err
	}

	m := modem.New(t, cfg.ModemOptions())
	ctrl := session.New(m, store, calllog.New(cfg.Files.CallLog), term)
	ctrl.Timing = cfg.Timing()

	if cfg.Tones.Enabled {
		gate, err := session.NewRingGate(cfg.Rings.Gate, cfg.Rings.Required)
		if err != nil {
			return nil, err
		}
		ctrl.Gate = gate
		ctrl.Tones = &tones.OnDemand{Config: cfg.DetectorConfig(), Open: cfg.AudioOpener()}
	}
	if cfg.Truncate.Enabled {
		svc, err := cfg.Truncation()
		if err != nil {
			return nil, err
		}
		ctrl.Truncator = svc
	}

	app := &App{Modem: m, Store: store, Controller: ctrl}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.New()
		ctrl.Metrics = app.Metrics
	}
	return app, nil
}
