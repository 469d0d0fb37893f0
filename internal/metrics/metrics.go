package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samvad-hq/tokens-api-suite/pkg/gateway"
)

const namespace = "tokensuite"

// Recorder owns the suite's Prometheus collectors. It implements gateway.Observer.
type Recorder struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	failures        *prometheus.CounterVec
	scenarios       *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of API requests issued by the gateway.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"endpoint", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Failed API requests by failure kind.",
		}, []string{"endpoint", "kind"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_results_total",
			Help:      "Scenario outcomes by category and status.",
		}, []string{"category", "status"}),
	}
	r.registry.MustRegister(r.requestDuration, r.failures, r.scenarios)
	return r
}

// ObserveRequest records one gateway call.
func (r *Recorder) ObserveRequest(endpoint string, status int, kind gateway.Kind, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if kind != 0 {
		outcome = kind.String()
		r.failures.WithLabelValues(endpoint, kind.String()).Inc()
	} else if status >= 300 {
		// probes report non-2xx without a failure kind
		outcome = "status_" + strconv.Itoa(status)
	}
	r.requestDuration.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
}

// ObserveScenario records one scenario result.
func (r *Recorder) ObserveScenario(category, status string) {
	if r == nil {
		return
	}
	r.scenarios.WithLabelValues(category, status).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
