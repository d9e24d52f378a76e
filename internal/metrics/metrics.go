package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Mailbox metrics
	MessagesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_messages_written_total",
			Help: "Total signaling messages written",
		},
		[]string{"type"},
	)

	JoinsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomrelay_joins_rejected_total",
			Help: "Total joins rejected because the room was full",
		},
	)

	MessagesRead = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roomrelay_read_messages",
			Help:    "Messages returned per mailbox read",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	ReadMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomrelay_read_misses_total",
			Help: "Listed keys that had expired by the time they were fetched",
		},
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_notify_failures_total",
			Help: "Write notifications that could not be published",
		},
		[]string{"backend"},
	)

	// Relay metrics
	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_broker_requests_total",
			Help: "Requests forwarded to the media broker",
		},
		[]string{"op", "status"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomrelay_store_latency_seconds",
			Help:    "Backing store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"backend", "op"},
	)

	StoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomrelay_store_ops_total",
			Help: "Backing store operations by result",
		},
		[]string{"backend", "op", "result"},
	)
)
