// Package observability provides Prometheus metrics for the live stream.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus metrics.
type Metrics struct {
	// Feed metrics
	FeedConnects    prometheus.Counter
	FeedDisconnects prometheus.Counter

	// Dispatch metrics
	LinesDispatched  prometheus.Counter
	TradesDelivered  prometheus.Counter
	DepthsDelivered  prometheus.Counter
	LinesFiltered    prometheus.Counter
	DecodeErrors     prometheus.Counter
	SinkErrors       *prometheus.CounterVec
	BookInstruments  prometheus.Gauge
	ClassifiedTrades *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all metrics registered on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quote_decoder"
	}

	return &Metrics{
		FeedConnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connects_total",
			Help:      "Total number of successful feed connections",
		}),
		FeedDisconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "disconnects_total",
			Help:      "Total number of feed disconnections",
		}),
		LinesDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "lines_total",
			Help:      "Total number of lines read by the dispatcher",
		}),
		TradesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "trades_total",
			Help:      "Total number of trade records delivered to sinks",
		}),
		DepthsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "depths_total",
			Help:      "Total number of depth snapshots delivered to sinks",
		}),
		LinesFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "filtered_total",
			Help:      "Total number of lines dropped by the instrument filter",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed records skipped",
		}),
		SinkErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "sink_errors_total",
			Help:      "Total number of sink delivery errors by sink kind",
		}, []string{"kind"}),
		BookInstruments: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "book",
			Name:      "instruments",
			Help:      "Number of instruments with a cached book snapshot",
		}),
		ClassifiedTrades: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "trades_total",
			Help:      "Total number of trades by assigned aggressor side",
		}, []string{"side"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
