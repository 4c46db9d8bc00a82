package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	auditEnqueuedTotal  prometheus.Counter
	auditDroppedTotal   prometheus.Counter
	auditWritesTotal    *prometheus.CounterVec
	auditQueueDepth     prometheus.Gauge
	auditCleanupDeleted prometheus.Counter
	uploadRequests      *prometheus.CounterVec
	uploadRejected      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the audit trail.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		auditEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_enqueued_total",
			Help: "Audit entries accepted by the deferred writer.",
		})

		auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Audit entries dropped because the writer queue was full or closed.",
		})

		auditWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Audit persistence attempts by outcome.",
		}, []string{"result"})

		auditQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Audit entries waiting in the deferred writer queue.",
		})

		auditCleanupDeleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_cleanup_deleted_total",
			Help: "Audit entries removed by retention cleanup.",
		})

		uploadRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Stored uploads by detected type.",
		}, []string{"type"})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			auditEnqueuedTotal, auditDroppedTotal, auditWritesTotal, auditQueueDepth, auditCleanupDeleted,
			uploadRequests, uploadRejected,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AuditEnqueued counts entries accepted by the audit queue.
func AuditEnqueued() prometheus.Counter {
	RegisterMetrics()
	return auditEnqueuedTotal
}

// AuditDropped counts entries the audit queue could not accept.
func AuditDropped() prometheus.Counter {
	RegisterMetrics()
	return auditDroppedTotal
}

// AuditWrites counts persistence attempts labelled "ok" or "error".
func AuditWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return auditWritesTotal
}

// AuditQueueDepth tracks the number of buffered audit entries.
func AuditQueueDepth() prometheus.Gauge {
	RegisterMetrics()
	return auditQueueDepth
}

// AuditCleanupDeleted counts rows removed by retention.
func AuditCleanupDeleted() prometheus.Counter {
	RegisterMetrics()
	return auditCleanupDeleted
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequests
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}
