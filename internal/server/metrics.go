package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slothmock/SlothFinanceTracker/internal/aggregator"
	"github.com/slothmock/SlothFinanceTracker/internal/cache"
)

// Metrics holds the Prometheus collectors for the aggregation engine. It
// implements aggregator.Observer so cycles feed it directly.
type Metrics struct {
	registry *prometheus.Registry

	FetchDuration *prometheus.HistogramVec
	CycleDuration prometheus.Histogram
	CyclesTotal   prometheus.Counter
	TotalValue    prometheus.Gauge
	TotalFees     prometheus.Gauge
}

// NewMetrics creates a registry with all engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slothfinance_fetch_duration_seconds",
				Help:    "Duration of each source fetch in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"source"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slothfinance_cycle_duration_seconds",
				Help:    "Duration of a full aggregation cycle in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),
		CyclesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "slothfinance_cycles_total",
				Help: "Total number of completed aggregation cycles",
			},
		),
		TotalValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "slothfinance_portfolio_total_value",
				Help: "Grand total portfolio value from the last cycle",
			},
		),
		TotalFees: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "slothfinance_portfolio_total_fees",
				Help: "Total fee revenue from the last cycle",
			},
		),
	}
	m.registry.MustRegister(m.FetchDuration, m.CycleDuration, m.CyclesTotal, m.TotalValue, m.TotalFees)
	return m
}

// FetchObserved records one source fetch duration.
func (m *Metrics) FetchObserved(source string, took time.Duration) {
	m.FetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

// CycleCompleted records a finished cycle and its totals.
func (m *Metrics) CycleCompleted(result aggregator.Result, took time.Duration) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(took.Seconds())
	m.TotalValue.Set(result.TotalValue)
	m.TotalFees.Set(result.TotalFees)
}

// RegisterCacheStats exposes price cache counters as gauges read at scrape
// time.
func (m *Metrics) RegisterCacheStats(name string, stats func() cache.Stats) {
	labels := prometheus.Labels{"cache": name}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "slothfinance_cache_hits_total", Help: "Cache hits", ConstLabels: labels,
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "slothfinance_cache_misses_total", Help: "Cache misses", ConstLabels: labels,
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "slothfinance_cache_evictions_total", Help: "Cache LRU evictions", ConstLabels: labels,
		}, func() float64 { return float64(stats().Evictions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "slothfinance_cache_fetch_failures_total", Help: "Failed price fetches", ConstLabels: labels,
		}, func() float64 { return float64(stats().Failures) }),
	)
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
