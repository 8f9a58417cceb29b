package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Weather.com PWS history calls by outcome (success, client_error, server_error, rate_limited, error).
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per call. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	// Transport failures by category (timeout, network, unknown).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Requests rejected before any upstream call (missing_credential, station_id, date).
	ProxyRejectionsTotal *prometheus.CounterVec

	// Rows per rendered history table.
	ObservationsRendered prometheus.Histogram

	// CSV downloads by precision (rendered, full).
	CSVExportsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of PWS history API calls",
		},
		[]string{"status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "PWS history API latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "PWS history API transport failures by category",
		},
		[]string{"category"},
	)
	ProxyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxyRejectionsTotal",
			Help: "History requests rejected before the upstream call",
		},
		[]string{"reason"},
	)
	ObservationsRendered = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "observationsRendered",
			Help:    "Number of observation rows per rendered history table",
			Buckets: []float64{0, 1, 12, 24, 48, 96, 288, 1000},
		},
	)
	CSVExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csvExportsTotal",
			Help: "CSV downloads served, by precision",
		},
		[]string{"precision"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		ProxyRejectionsTotal, ObservationsRendered, CSVExportsTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
