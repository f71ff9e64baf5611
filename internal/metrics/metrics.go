// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid_arguments"
	OutcomePanic    = "panic"
)

var (
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larder_tool_calls_total",
			Help: "Total number of tool executions by outcome",
		},
		[]string{"tool", "outcome"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "larder_tool_duration_seconds",
			Help:    "Tool execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"tool"},
	)

	Intents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larder_intents_total",
			Help: "Interpretations dispatched by intent",
		},
		[]string{"intent"},
	)

	ExtractionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "larder_extraction_failures_total",
			Help: "Model responses from which no JSON could be recovered",
		},
	)

	ImportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larder_import_jobs_total",
			Help: "Recipe import jobs processed by status",
		},
		[]string{"status"},
	)

	VoiceSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "larder_voice_sessions_active",
			Help: "Number of open voice websocket sessions",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
