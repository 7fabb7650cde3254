// Package metrics exports call-screening counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xenogenesi/jcblock/internal/pkg/logger"
)

const namespace = "jcblock"

// Exporter holds the appliance's collectors on a private registry.
type Exporter struct {
	registry *prometheus.Registry

	calls       *prometheus.CounterVec
	callSeconds *prometheus.HistogramVec
	listErrors  *prometheus.CounterVec

	mu     sync.Mutex
	server *http.Server
}

// New registers the appliance metrics plus the Go runtime and process
// collectors.
func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Calls screened, by outcome",
		}, []string{"outcome"}),
		callSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_handling_seconds",
			Help:      "Time from caller-ID line to outcome",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"outcome"}),
		listErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_errors_total",
			Help:      "List checks that failed and fell back to the fail-open verdict",
		}, []string{"list"}),
	}
	e.registry.MustRegister(
		e.calls,
		e.callSeconds,
		e.listErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return e
}

// ObserveCall counts one screened call.
func (e *Exporter) ObserveCall(outcome string, took time.Duration) {
	e.calls.WithLabelValues(outcome).Inc()
	e.callSeconds.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveListError counts a failed whitelist or blacklist check.
func (e *Exporter) ObserveListError(list string) {
	e.listErrors.WithLabelValues(list).Inc()
}

// Registry exposes the collectors, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves /metrics and /health.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Start serves the metrics on addr in the background. Calling Start twice
// is a no-op.
func (e *Exporter) Start(addr string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.server != nil {
		return
	}
	e.server = &http.Server{
		Addr:         addr,
		Handler:      e.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv := e.server
	go func() {
		logger.Info("Starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", "error", err)
		}
	}()
}

// Shutdown stops the server started by Start.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	e.server = nil
	e.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
