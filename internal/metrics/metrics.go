// Package metrics exposes Prometheus collectors for fetch cycles.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/fetch"
)

// Metrics bundles Prometheus collectors for the controller.
type Metrics struct {
	Registry        *prometheus.Registry
	CyclesTotal     *prometheus.CounterVec
	CycleLatency    prometheus.Histogram
	SupersededTotal prometheus.Counter
	InFlight        prometheus.Gauge
	ProductsShown   prometheus.Gauge
}

var _ controller.Recorder = (*Metrics)(nil)

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketmon_cycles_total",
			Help: "Applied fetch cycles by outcome.",
		},
		[]string{"outcome"},
	)
	latency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketmon_cycle_latency_seconds",
			Help:    "Reported cycle latency, simulated delay included.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 10, 12},
		},
	)
	superseded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketmon_cycles_superseded_total",
			Help: "Cycles whose result was discarded because a newer cycle started.",
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketmon_cycles_in_flight",
			Help: "Cycles started but not yet settled.",
		},
	)
	products := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketmon_products_shown",
			Help: "Products in the last successful result.",
		},
	)

	registry.MustRegister(cycles, latency, superseded, inFlight, products)

	// Pre-create every label so dashboards see zeros.
	cycles.WithLabelValues("success")
	for _, k := range []fetch.Kind{fetch.KindInjectedFault, fetch.KindHTTP, fetch.KindTimeout, fetch.KindNetwork} {
		cycles.WithLabelValues(string(k))
	}

	return &Metrics{
		Registry:        registry,
		CyclesTotal:     cycles,
		CycleLatency:    latency,
		SupersededTotal: superseded,
		InFlight:        inFlight,
		ProductsShown:   products,
	}
}

func (m *Metrics) CycleStarted(controller.Cycle) {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) CycleCompleted(_ controller.Cycle, o controller.Outcome) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	m.CyclesTotal.WithLabelValues(o.Label()).Inc()
	if o.HasLatency {
		m.CycleLatency.Observe(o.Latency.Seconds())
	}
	if o.Err == nil {
		m.ProductsShown.Set(float64(o.Products))
	}
}

func (m *Metrics) CycleSuperseded(controller.Cycle) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	m.SupersededTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "metrics server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "metrics shutdown")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics server")
	}
	return nil
}
