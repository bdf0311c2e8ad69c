// Package metrics exposes the Prometheus instruments for evaluation cycles,
// provider calls and the history cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all rotorscan metrics.
type Registry struct {
	CycleDuration   *prometheus.HistogramVec
	SymbolsScored   *prometheus.CounterVec
	SymbolsExcluded *prometheus.CounterVec

	ProviderRequests *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ActiveCycles prometheus.Gauge
}

// NewRegistry creates the metric instruments.
func NewRegistry() *Registry {
	return &Registry{
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotorscan_cycle_duration_seconds",
				Help:    "Duration of each evaluation-cycle stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"stage"},
		),
		SymbolsScored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_symbols_scored_total",
				Help: "Symbols successfully scored per component",
			},
			[]string{"component"},
		),
		SymbolsExcluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_symbols_excluded_total",
				Help: "Symbols excluded from scoring, by reason kind",
			},
			[]string{"component", "reason"},
		),
		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_provider_requests_total",
				Help: "Upstream provider requests by provider and endpoint",
			},
			[]string{"provider", "endpoint"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_provider_errors_total",
				Help: "Upstream provider failures by provider and endpoint",
			},
			[]string{"provider", "endpoint"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_cache_hits_total",
				Help: "History cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotorscan_cache_misses_total",
				Help: "History cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		ActiveCycles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotorscan_active_cycles",
				Help: "Evaluation cycles currently running",
			},
		),
	}
}

// Register adds all instruments to the given Prometheus registerer.
func (r *Registry) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.CycleDuration,
		r.SymbolsScored,
		r.SymbolsExcluded,
		r.ProviderRequests,
		r.ProviderErrors,
		r.CacheHits,
		r.CacheMisses,
		r.ActiveCycles,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
