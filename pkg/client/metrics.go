package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/govmeta/pkg/adapters/cache"
)

// Metrics holds the Prometheus collectors of a Client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	loadsTotal   *prometheus.CounterVec
	loadDuration prometheus.Histogram
	cacheTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on registry.
// A nil registry leaves them unregistered.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govmeta_loads_total",
				Help: "Total number of document loads by final stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		loadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "govmeta_load_duration_seconds",
				Help:    "Duration of document loads",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govmeta_fetch_cache_total",
				Help: "Context cache lookups by result",
			},
			[]string{"result"},
		),
	}

	if registry != nil {
		for _, c := range []prometheus.Collector{m.loadsTotal, m.loadDuration, m.cacheTotal} {
			if err := registry.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// CacheObserver returns a cache.Observer feeding govmeta_fetch_cache_total.
func (m *Metrics) CacheObserver() cache.Observer {
	return func(result string) {
		if m == nil {
			return
		}
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) recordLoad(stage string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.loadsTotal.WithLabelValues(stage, outcome).Inc()
	m.loadDuration.Observe(elapsed.Seconds())
}
