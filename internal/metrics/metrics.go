// Package metrics exposes sensorhub's Prometheus metrics.
//
// Init registers every collector on the default registry once; the Observe
// and Inc helpers are no-ops until then, so packages may call them from
// tests without setup.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/sensorhub-core/internal/reading"
)

const (
	metricPrefix = "sensorhub_"

	resultSuccess  = "success"
	resultError    = "error"
	resultRejected = "rejected"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	ingestMessages *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	readingsRecorded *prometheus.CounterVec
	sinkErrors       *prometheus.CounterVec
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		ingestMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_messages_total",
				Help: "Total MQTT ingest messages by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "MQTT ingest handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		readingsRecorded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_recorded_total",
				Help: "Total readings stored, by device",
			},
			[]string{"device_id"},
		)
		sinkErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_errors_total",
				Help: "Total reading sink failures by sink",
			},
			[]string{"sink"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			ingestMessages,
			ingestLatency,
			readingsRecorded,
			sinkErrors,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one served request. route is the chi route
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// ObserveIngest records one handled MQTT message.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestMessages != nil {
		ingestMessages.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSinkError counts a failed sink delivery.
func IncSinkError(sink string) {
	if sink == "" {
		sink = "unknown"
	}
	if sinkErrors != nil {
		sinkErrors.WithLabelValues(sink).Inc()
	}
}

// ReadingSink counts stored readings. Register it with
// reading.Service.AddSink.
type ReadingSink struct{}

// ReadingRecorded implements reading.Sink.
func (ReadingSink) ReadingRecorded(r reading.Reading) {
	if readingsRecorded != nil {
		readingsRecorded.WithLabelValues(r.DeviceID).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultError    = resultError
	ResultRejected = resultRejected
)
