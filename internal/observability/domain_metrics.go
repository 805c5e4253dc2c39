package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	toolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bicopilot_tool_invocations_total",
			Help: "Total number of tool dispatches by operation and outcome.",
		},
		[]string{"op", "status"},
	)
	toolDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bicopilot_tool_duration_seconds",
			Help:    "Tool dispatch latency by operation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bicopilot_query_rows_returned",
			Help:    "Row counts returned by execute-query dispatches.",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
	)
	anomaliesFlaggedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bicopilot_anomalies_flagged_total",
			Help: "Total number of anomalous rows flagged across detection runs.",
		},
	)
	aiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bicopilot_ai_requests_total",
			Help: "Total number of AI collaborator calls by purpose and outcome.",
		},
		[]string{"purpose", "status"},
	)
	aiRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bicopilot_ai_retries_total",
			Help: "Total number of AI calls retried after a rate-limit response.",
		},
	)
	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bicopilot_ai_tokens_total",
			Help: "Total tokens exchanged with the AI collaborator by direction.",
		},
		[]string{"direction"},
	)
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bicopilot_query_cache_lookups_total",
			Help: "Query cache lookups by result.",
		},
		[]string{"result"},
	)
	historyEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bicopilot_history_evictions_total",
			Help: "Total number of history entries evicted at capacity.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		toolInvocationsTotal,
		toolDurationSeconds,
		queryRowsReturned,
		anomaliesFlaggedTotal,
		aiRequestsTotal,
		aiRetriesTotal,
		aiTokensTotal,
		cacheLookupsTotal,
		historyEvictionsTotal,
	)
}

func ObserveToolInvocation(op, status string, elapsed time.Duration) {
	toolInvocationsTotal.WithLabelValues(op, status).Inc()
	toolDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

func ObserveQueryRows(rows int) {
	queryRowsReturned.Observe(float64(rows))
}

func AddAnomaliesFlagged(count int) {
	if count > 0 {
		anomaliesFlaggedTotal.Add(float64(count))
	}
}

func ObserveAIRequest(purpose, status string, inputTokens, outputTokens int) {
	aiRequestsTotal.WithLabelValues(purpose, status).Inc()
	if inputTokens > 0 {
		aiTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		aiTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}

func IncrementAIRetry() {
	aiRetriesTotal.Inc()
}

func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

func IncrementHistoryEviction() {
	historyEvictionsTotal.Inc()
}
