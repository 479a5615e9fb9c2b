// Package metrics exposes Prometheus instrumentation for the compliance
// core. Metrics are registered once at package init via promauto and
// shared by the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationUpdates counts evaluation status changes by resulting status.
	EvaluationUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridian",
		Subsystem: "evaluation",
		Name:      "updates_total",
		Help:      "Evaluation updates by resulting status.",
	}, []string{"status"})

	// EvidenceUploads counts evidence uploads by content type.
	EvidenceUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridian",
		Subsystem: "evidence",
		Name:      "uploads_total",
		Help:      "Evidence uploads by content type.",
	}, []string{"content_type"})

	// EvidenceUploadBytes observes the size of uploaded evidence files.
	EvidenceUploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "veridian",
		Subsystem: "evidence",
		Name:      "upload_bytes",
		Help:      "Size distribution of uploaded evidence files.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
	})

	// BlobOperationErrors counts blob store failures by operation.
	BlobOperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridian",
		Subsystem: "blob",
		Name:      "operation_errors_total",
		Help:      "Blob store operation failures by operation.",
	}, []string{"operation"})

	// ComplianceComputations observes the duration of compliance level
	// derivations, labeled by whether the cache served the result.
	ComplianceComputations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "veridian",
		Subsystem: "bia",
		Name:      "compliance_computation_seconds",
		Help:      "Duration of compliance level derivations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	// HistoryEntriesWritten counts appended history entries by entity type.
	HistoryEntriesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridian",
		Subsystem: "history",
		Name:      "entries_total",
		Help:      "History entries appended by entity type.",
	}, []string{"entity_type"})
)
