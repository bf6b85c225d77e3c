package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry when the package loads,
// so they are usable from tests without any setup.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of portal scrapes by outcome.",
		},
		[]string{"outcome"}, // complete, partial, login_failed
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Wall-clock duration of portal scrapes.",
			Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120},
		},
		[]string{"engine"},
	)

	PortalStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_stage_failures_total",
			Help: "Scrape stages that degraded to defaults.",
		},
		[]string{"stage", "error_type"},
	)

	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat questions by result.",
		},
		[]string{"status"},
	)

	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Duration of embedding plus nearest-neighbour lookup.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArtifactsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artifacts_in_queue",
			Help: "Debug artifacts waiting to be written.",
		},
	)

	ArtifactsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artifacts_dropped_total",
			Help: "Debug artifacts dropped because the queue was full.",
		},
	)
)
