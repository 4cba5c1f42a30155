package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_messages_total",
			Help: "Inbound chat messages processed by the pipeline, by outcome.",
		},
		[]string{"outcome"},
	)
	sharedFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_shared_files_total",
			Help: "Files shared into a channel, by outcome.",
		},
		[]string{"outcome"},
	)
	duplicateEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_duplicate_events_total",
			Help: "Inbound events skipped because their event id was already processed.",
		},
	)
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_generations_total",
			Help: "SQL generation calls by provider and extraction stage.",
		},
		[]string{"provider", "extraction"},
	)
	generationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqloslav_generation_latency_ms",
			Help:    "Latency of SQL generation calls in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 20000},
		},
	)
	schemaMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_schema_mismatch_total",
			Help: "Generation requests for a schema without its own description.",
		},
	)
	validationRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_validation_rejections_total",
			Help: "Generated queries rejected by the SQL validator.",
		},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqloslav_query_duration_seconds",
			Help:    "Backend query execution latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend", "status"},
	)
	queryRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_query_rows_total",
			Help: "Rows returned by backend queries.",
		},
		[]string{"backend"},
	)
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqloslav_uploads_total",
			Help: "Result file uploads to the chat platform, by status.",
		},
		[]string{"status"},
	)
	archiveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqloslav_archive_failures_total",
			Help: "Result files that could not be copied to the archive object store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		messagesTotal,
		sharedFilesTotal,
		duplicateEventsTotal,
		generationsTotal,
		generationLatencyMs,
		schemaMismatchTotal,
		validationRejectionsTotal,
		queryDurationSeconds,
		queryRowsTotal,
		uploadsTotal,
		archiveFailuresTotal,
	)
}

func ObserveMessage(outcome string) {
	messagesTotal.WithLabelValues(outcome).Inc()
}

func ObserveSharedFile(outcome string) {
	sharedFilesTotal.WithLabelValues(outcome).Inc()
}

func IncrementDuplicateEvent() {
	duplicateEventsTotal.Inc()
}

func ObserveGeneration(provider, extraction string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(provider, extraction).Inc()
	generationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementSchemaMismatch() {
	schemaMismatchTotal.Inc()
}

func IncrementValidationRejection() {
	validationRejectionsTotal.Inc()
}

func ObserveQuery(backend string, rows int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	queryDurationSeconds.WithLabelValues(backend, status).Observe(elapsed.Seconds())
	if rows > 0 {
		queryRowsTotal.WithLabelValues(backend).Add(float64(rows))
	}
}

func ObserveUpload(err error) {
	if err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		return
	}
	uploadsTotal.WithLabelValues("ok").Inc()
}

func IncrementArchiveFailure() {
	archiveFailuresTotal.Inc()
}
