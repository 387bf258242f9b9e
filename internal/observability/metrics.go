package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms of radolanserv.
type Metrics struct {
	Decodes        *prometheus.CounterVec   // labels: product, outcome={ok,error}
	DecodeDuration *prometheus.HistogramVec // labels: product
	Cache          *prometheus.CounterVec   // labels: result={hit,miss}
	CatalogErrors  prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Decodes,
		m.DecodeDuration,
		m.Cache,
		m.CatalogErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build many servers.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radolan",
			Name:      "decodes_total",
			Help:      "Composite and DX decodes by product and outcome.",
		}, []string{"product", "outcome"}),
		DecodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "radolan",
			Name:      "decode_duration_seconds",
			Help:      "Time spent fetching and decoding one file.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"product"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radolan",
			Name:      "cache_total",
			Help:      "Decoded grid cache lookups by result.",
		}, []string{"result"}),
		CatalogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan",
			Name:      "catalog_errors_total",
			Help:      "Failed catalog listings and opens, not counting unknown names.",
		}),
	}
}
