// Package metrics registers the per-endpoint aggregation metrics. The
// transport-level request metrics live in the HTTP middleware; these track
// the market-data pipeline behind it.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daytrader",
			Subsystem: "pipeline",
			Name:      "latency_seconds",
			Help:      "End-to-end latency of market data endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Errors by market data endpoint",
		},
		[]string{"endpoint"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daytrader",
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Response cache hits by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, CacheHits)
	})
}
