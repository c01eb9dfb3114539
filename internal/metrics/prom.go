package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionTotal counts extractions by the path that produced the result.
	ExtractionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_extraction_total",
			Help: "Document extractions by path (direct, ocr, html, placeholder, ocr_unavailable, not_found).",
		},
		[]string{"path"},
	)

	// LLMRequestsTotal counts orchestrated model calls by operation and outcome.
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_llm_requests_total",
			Help: "Completion requests by operation and outcome (ok, unavailable, rate_limited, timeout, error).",
		},
		[]string{"operation", "outcome"},
	)

	// LLMLatency observes completion latency per operation.
	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_llm_request_duration_seconds",
			Help:    "Completion request latency.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"operation"},
	)

	// HistoryOperationsTotal counts memory store appends and queries.
	HistoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_history_operations_total",
			Help: "Health history operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_http_requests_total",
			Help: "HTTP API requests by route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)
)
