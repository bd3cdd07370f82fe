package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Claims-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Tool call counters
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "tool_calls_total",
			Help:      "Total tool calls emitted by the model",
		},
		[]string{"tool_name", "status"},
	)

	// Server tool duration histogram
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "tool_duration_seconds",
			Help:      "Server-executed tool duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"tool_name"},
	)

	// Turn outcomes
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "turns_total",
			Help:      "Chat turns by finish reason",
		},
		[]string{"finish_reason"},
	)

	// Model rounds per turn
	TurnSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "turn_steps",
			Help:      "Model rounds used per chat turn",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	// Human decisions
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "decisions_total",
			Help:      "Human decisions on gated tool calls",
		},
		[]string{"tool_name", "outcome", "applied"},
	)

	// Claim cache lookups
	ClaimCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "claim_cache_lookups_total",
			Help:      "Claim cache lookups by result",
		},
		[]string{"result"},
	)

	// Webhook deliveries
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "claims_api",
			Name:      "webhook_deliveries_total",
			Help:      "Decision webhook deliveries by status",
		},
		[]string{"status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordToolCall records a tool call outcome
func RecordToolCall(toolName, status string) {
	ToolCallsTotal.WithLabelValues(toolName, status).Inc()
}

// RecordToolDuration records how long a server-executed tool took
func RecordToolDuration(toolName string, durationSec float64) {
	ToolDuration.WithLabelValues(toolName).Observe(durationSec)
}

// RecordTurn records a finished chat turn
func RecordTurn(finishReason string, steps int) {
	TurnsTotal.WithLabelValues(finishReason).Inc()
	TurnSteps.Observe(float64(steps))
}

// RecordDecision records a human decision
func RecordDecision(toolName, outcome string, applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	DecisionsTotal.WithLabelValues(toolName, outcome, label).Inc()
}

// RecordClaimCache records a claim cache hit or miss
func RecordClaimCache(hit bool) {
	if hit {
		ClaimCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	ClaimCacheLookups.WithLabelValues("miss").Inc()
}

// RecordWebhookDelivery records a webhook delivery attempt result
func RecordWebhookDelivery(status string) {
	WebhookDeliveriesTotal.WithLabelValues(status).Inc()
}
