package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of inbound webhook deliveries by outcome (count)",
		},
		[]string{"outcome"},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_ingest_duration_ms",
			Help:    "Ingestion pipeline duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"outcome"},
	)

	ActiveMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_active_messages",
			Help: "Number of messages in the active set (count)",
		},
	)

	ArchivedMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_archived_messages_total",
			Help: "Total number of messages moved from the active set into archive shards (count)",
		},
	)

	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_storage_errors_total",
			Help: "Total number of storage failures by operation (count)",
		},
		[]string{"operation"},
	)

	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_live_subscribers",
			Help: "Number of connected live update readers (count)",
		},
	)

	LiveDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_live_dropped_total",
			Help: "Total number of live events dropped for slow readers (count)",
		},
	)

	ForwardQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webhook_forward_queue_size",
			Help: "Current number of messages waiting to be forwarded (count)",
		},
	)

	ForwardedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_forwarded_messages_total",
			Help: "Total number of messages forwarded by sink and status (count)",
		},
		[]string{"sink", "status"},
	)

	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_forward_duration_ms",
			Help:    "Duration of forwarding a message to a sink in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"sink"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

func RegisterWebhookMetrics() {
	prometheus.MustRegister(WebhookRequestsTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(ActiveMessages)
	prometheus.MustRegister(ArchivedMessagesTotal)
	prometheus.MustRegister(StorageErrorsTotal)
	prometheus.MustRegister(LiveSubscribers)
	prometheus.MustRegister(LiveDroppedTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterForwardMetrics() {
	prometheus.MustRegister(ForwardQueueSize)
	prometheus.MustRegister(ForwardedMessagesTotal)
	prometheus.MustRegister(ForwardDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func IncWebhookRequest(outcome string) {
	WebhookRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveIngestDuration(duration time.Duration, outcome string) {
	IngestDuration.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

func SetActiveMessages(count int) {
	ActiveMessages.Set(float64(count))
}

func AddArchivedMessages(count int) {
	ArchivedMessagesTotal.Add(float64(count))
}

func IncStorageError(operation string) {
	StorageErrorsTotal.WithLabelValues(operation).Inc()
}

func SetForwardQueueSize(size int) {
	ForwardQueueSize.Set(float64(size))
}

func IncForwarded(sink, status string) {
	ForwardedMessagesTotal.WithLabelValues(sink, status).Inc()
}

func ObserveForwardDuration(sink string, duration time.Duration) {
	ForwardDuration.WithLabelValues(sink).Observe(float64(duration.Milliseconds()))
}

func IncRetryAttempt(sink string) {
	RetryAttemptsTotal.WithLabelValues(sink).Inc()
}
