// Package metrics holds the Prometheus collectors of the back office.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	AuthOutcomes *prometheus.CounterVec
	HashDuration *prometheus.HistogramVec
	PoolInFlight prometheus.Gauge
}

// New creates a private registry so that tests can build as many instances
// as they like without duplicate registration panics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Bearer token extractions by outcome.",
		}, []string{"reason"}),
		HashDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "password_hash_duration_seconds",
			Help:    "Time spent deriving argon2id hashes.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		PoolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "password_pool_in_flight",
			Help: "Password jobs currently running on the worker pool.",
		}),
	}
	reg.MustRegister(
		m.AuthOutcomes,
		m.HashDuration,
		m.PoolInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
