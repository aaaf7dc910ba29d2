// Package metrics provides Prometheus metrics for the hearing service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusOK           = "ok"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	// Relay metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatCharsStreamed   prometheus.Counter
	ChatStreamDuration  prometheus.Histogram
	ChatStreamsInFlight prometheus.Gauge

	// Summarizer metrics
	SummariesTotal  *prometheus.CounterVec
	SummaryDuration prometheus.Histogram
}

// NewMetrics creates all metrics on a fresh registry, so that independent
// instances (tests, multiple servers) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearing_chat_requests_total",
			Help: "Total number of chat relays by seed source and outcome",
		},
		[]string{"seed", "status"},
	)

	m.ChatCharsStreamed = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "hearing_chat_chars_streamed_total",
			Help: "Total number of characters written to chat clients",
		},
	)

	m.ChatStreamDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hearing_chat_stream_duration_seconds",
			Help:    "Duration of chat relays in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	m.ChatStreamsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "hearing_chat_streams_in_flight",
			Help: "Number of chat relays currently streaming",
		},
	)

	m.SummariesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearing_summaries_total",
			Help: "Total number of summary generations by outcome",
		},
		[]string{"status"},
	)

	m.SummaryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hearing_summary_duration_seconds",
			Help:    "Duration of summary generations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	return m
}

// RecordChat records a finished chat relay.
func (m *Metrics) RecordChat(seed, status string, chars int, duration time.Duration) {
	m.ChatRequestsTotal.WithLabelValues(seed, status).Inc()
	m.ChatCharsStreamed.Add(float64(chars))
	m.ChatStreamDuration.Observe(duration.Seconds())
}

// RecordSummary records a finished summary generation.
func (m *Metrics) RecordSummary(status string, duration time.Duration) {
	m.SummariesTotal.WithLabelValues(status).Inc()
	m.SummaryDuration.Observe(duration.Seconds())
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
