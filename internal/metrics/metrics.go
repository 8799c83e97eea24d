package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "articles_publisher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Pipeline metrics
	FeedItemsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_feed_items_total",
			Help: "Feed items seen by ingestion, by outcome",
		},
		[]string{"source", "outcome"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_generations_total",
			Help: "Generation attempts finished, by status",
		},
		[]string{"status"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "articles_publisher_generation_duration_seconds",
			Help:    "Generation provider call duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	JSONRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_json_repairs_total",
			Help: "Generation responses that needed repair, by outcome",
		},
		[]string{"outcome"},
	)

	ImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_image_uploads_total",
			Help: "Featured image uploads to the CMS, by status",
		},
		[]string{"status"},
	)

	PublicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_publications_total",
			Help: "Publication attempts finished, by status",
		},
		[]string{"status"},
	)

	DedupRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_dedup_removed_total",
			Help: "Feed items removed by reconciliation, by key",
		},
		[]string{"key"},
	)

	// NATS metrics
	NatsMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_publisher_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "articles_publisher_application_info",
			Help: "Application information",
		},
		[]string{"version", "environment"},
	)
)

// Init records static application labels.
func Init(version, environment string) {
	ApplicationInfo.WithLabelValues(version, environment).Set(1)
}
