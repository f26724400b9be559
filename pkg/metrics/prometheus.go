// Package metrics provides Prometheus metrics for the attendance service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Recognition metrics.
	recognitionsMatched prometheus.Counter
	recognitionsUnknown prometheus.Counter
	matchDistance       prometheus.Histogram

	// Attendance metrics.
	marksTotal      prometheus.Counter
	marksDuplicate  prometheus.Counter
	manualEntries   prometheus.Counter
	attendanceToday prometheus.Gauge

	// Gallery metrics.
	galleryIdentities prometheus.Gauge
	galleryEmbeddings prometheus.Gauge

	// Store metrics.
	storeErrors prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager backed by a custom registry so the default Go collectors
// do not leak into our scrape output.
var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton metrics manager
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.recognitionsMatched = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "recognitions_matched_total",
		Help:      "Number of recognitions that resolved to a known identity.",
	})
	m.recognitionsUnknown = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "recognitions_unknown_total",
		Help:      "Number of recognitions that returned Unknown.",
	})
	m.matchDistance = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "match_distance",
		Help:      "Distance of the nearest gallery embedding per recognition.",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0},
	})

	m.marksTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "attendance_marks_total",
		Help:      "Number of successful automatic attendance marks.",
	})
	m.marksDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "attendance_duplicate_marks_total",
		Help:      "Number of mark attempts rejected as already marked.",
	})
	m.manualEntries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "attendance_manual_entries_total",
		Help:      "Number of manual attendance entries.",
	})
	m.attendanceToday = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "attendance_today",
		Help:      "Unique identities automatically marked present today.",
	})

	m.galleryIdentities = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "gallery_identities",
		Help:      "Number of identities in the embedding gallery.",
	})
	m.galleryEmbeddings = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "gallery_embeddings",
		Help:      "Total number of embeddings in the gallery.",
	})

	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "store_errors_total",
		Help:      "Number of persistence collaborator failures.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})

	return m
}

// Package-level helpers operating on the global manager.

// RecordRecognition records the outcome of a single recognition.
func RecordRecognition(matched bool, distance float64) {
	if matched {
		globalManager.recognitionsMatched.Inc()
	} else {
		globalManager.recognitionsUnknown.Inc()
	}
	globalManager.matchDistance.Observe(distance)
}

// RecordMark records a successful automatic attendance mark.
func RecordMark() { globalManager.marksTotal.Inc() }

// RecordDuplicateMark records a rejected duplicate mark attempt.
func RecordDuplicateMark() { globalManager.marksDuplicate.Inc() }

// RecordManualEntry records a manual attendance entry.
func RecordManualEntry() { globalManager.manualEntries.Inc() }

// UpdateAttendanceToday sets the number of unique identities marked today.
func UpdateAttendanceToday(count int) { globalManager.attendanceToday.Set(float64(count)) }

// UpdateGallerySize sets the gallery gauges.
func UpdateGallerySize(identities, embeddings int) {
	globalManager.galleryIdentities.Set(float64(identities))
	globalManager.galleryEmbeddings.Set(float64(embeddings))
}

// RecordStoreError records a persistence collaborator failure.
func RecordStoreError() { globalManager.storeErrors.Inc() }

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration records the duration of one HTTP request.
func RecordHTTPRequestDuration(endpoint, method string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// GetRegistry exposes the registry backing the global manager for scraping.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
