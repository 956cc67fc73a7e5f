package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the signal lifecycle engine.
// A nil *Metrics is a valid no-op receiver, so metrics can be disabled by
// configuration without branching at every call site.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal    *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	Generated      prometheus.Counter
	Resolved       prometheus.Counter
	ForceFailed    prometheus.Counter
	QuoteFetches   *prometheus.CounterVec
}

// New creates and registers the engine metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overnight_cycles_total",
				Help: "Daily cycles by final state and success",
			},
			[]string{"state", "success"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "overnight_cycle_duration_seconds",
				Help:    "Duration of a full daily cycle",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		Generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overnight_signals_generated_total",
			Help: "Signals written by the generator",
		}),
		Resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overnight_signals_resolved_total",
			Help: "Signals resolved from market data",
		}),
		ForceFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "overnight_signals_force_failed_total",
			Help: "Signals force-failed after the retry window",
		}),
		QuoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "overnight_quote_fetches_total",
				Help: "Market data fetches by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.CyclesTotal, m.CycleDuration,
		m.Generated, m.Resolved, m.ForceFailed,
		m.QuoteFetches,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle records the outcome of one cycle.
func (m *Metrics) ObserveCycle(state string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	ok := "false"
	if success {
		ok = "true"
	}
	m.CyclesTotal.WithLabelValues(state, ok).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// AddGenerated counts generated signals.
func (m *Metrics) AddGenerated(n int) {
	if m == nil {
		return
	}
	m.Generated.Add(float64(n))
}

// AddResolved counts resolved and force-failed signals.
func (m *Metrics) AddResolved(resolved, forceFailed int) {
	if m == nil {
		return
	}
	m.Resolved.Add(float64(resolved))
	m.ForceFailed.Add(float64(forceFailed))
}

// ObserveQuoteFetch counts a market data fetch by result ("ok"/"error").
func (m *Metrics) ObserveQuoteFetch(ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.QuoteFetches.WithLabelValues(result).Inc()
}
