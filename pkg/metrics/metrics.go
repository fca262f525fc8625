// Package metrics holds the Prometheus collectors for the archive.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "estate"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RecordsCreated     prometheus.Counter
	RecordsSkipped     prometheus.Counter
	RecordsListed      prometheus.Histogram
	AtomicWrites       *prometheus.CounterVec
	AtomicWriteBytes   prometheus.Counter
	TempFilesRemoved   prometheus.Counter
	RecordingsImported prometheus.Counter
	Transcriptions     *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Person records written by create (existing documents are not counted).",
		}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Corrupt or unreadable records skipped while listing.",
		}),
		RecordsListed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_listed",
			Help:      "Number of records returned per list call.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		AtomicWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "atomic_writes_total",
			Help:      "Atomic file writes by result.",
		}, []string{"result"}),
		AtomicWriteBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "atomic_write_bytes_total",
			Help:      "Bytes committed through atomic writes.",
		}),
		TempFilesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "temp_files_removed_total",
			Help:      "Orphaned temp files deleted by cleanup.",
		}),
		RecordingsImported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_imported_total",
			Help:      "Recordings stored under a person directory.",
		}),
		Transcriptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription attempts by provider and result.",
		}, []string{"provider", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveWrite records the outcome of one atomic write.
func (m *Metrics) ObserveWrite(n int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AtomicWrites.WithLabelValues("error").Inc()
		return
	}
	m.AtomicWrites.WithLabelValues("ok").Inc()
	m.AtomicWriteBytes.Add(float64(n))
}

// IncRecordsCreated counts one newly written person document.
func (m *Metrics) IncRecordsCreated() {
	if m != nil {
		m.RecordsCreated.Inc()
	}
}

// IncRecordsSkipped counts one record skipped during a listing.
func (m *Metrics) IncRecordsSkipped() {
	if m != nil {
		m.RecordsSkipped.Inc()
	}
}

// ObserveListed records the size of one listing.
func (m *Metrics) ObserveListed(n int) {
	if m != nil {
		m.RecordsListed.Observe(float64(n))
	}
}

// AddTempFilesRemoved counts files deleted by a cleanup pass.
func (m *Metrics) AddTempFilesRemoved(n int) {
	if m != nil {
		m.TempFilesRemoved.Add(float64(n))
	}
}

// IncRecordingsImported counts one imported recording.
func (m *Metrics) IncRecordingsImported() {
	if m != nil {
		m.RecordingsImported.Inc()
	}
}

// ObserveTranscription records one transcription attempt.
func (m *Metrics) ObserveTranscription(provider string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Transcriptions.WithLabelValues(provider, result).Inc()
}

// ObserveRequest records one served API request.
func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(seconds)
}
