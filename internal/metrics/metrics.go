package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundernote_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "foundernote_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	SynthesisResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundernote_synthesis_total",
			Help: "Digest requests by outcome (cached, generated, empty, fallback)",
		},
		[]string{"scope", "outcome"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foundernote_llm_latency_seconds",
			Help:    "Model completion latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"operation"},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundernote_llm_tokens_total",
			Help: "Tokens used by model completions",
		},
		[]string{"operation", "direction"},
	)

	TriggerDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundernote_trigger_detections_total",
			Help: "Chat messages that matched a remember trigger, by outcome (captured, suppressed, failed)",
		},
		[]string{"outcome"},
	)

	IntentsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foundernote_intents_captured_total",
			Help: "Intents stored from chat, by type",
		},
		[]string{"type"},
	)
)

// ObserveLLM records one completion.
func ObserveLLM(operation string, started time.Time, inputTokens, outputTokens int) {
	LLMLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if inputTokens > 0 {
		LLMTokens.WithLabelValues(operation, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokens.WithLabelValues(operation, "output").Add(float64(outputTokens))
	}
}
