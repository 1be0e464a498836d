// Package observability provides Prometheus metrics instrumentation for the deepcore.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// PIPELINE METRICS
// =============================================================================

var (
	pipelineExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdlc_pipeline_executions_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"pipeline", "status"}, // status: completed, pending_approval, terminated
	)

	pipelineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdlc_pipeline_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"pipeline"},
	)
)

// =============================================================================
// STAGE METRICS
// =============================================================================

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdlc_stage_executions_total",
			Help: "Total number of stage agent executions",
		},
		[]string{"stage", "status"}, // status: success, requires_approval, max_iterations, error
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdlc_stage_duration_seconds",
			Help:    "Stage agent execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
)

// =============================================================================
// TOOL METRICS
// =============================================================================

var (
	toolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdlc_tool_invocations_total",
			Help: "Total number of tool invocations by transport",
		},
		[]string{"tool", "transport", "status"}, // transport: primary, fallback, none
	)

	toolDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdlc_tool_duration_seconds",
			Help:    "Tool invocation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"tool", "transport"},
	)
)

// =============================================================================
// ORACLE METRICS
// =============================================================================

var (
	oracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdlc_oracle_calls_total",
			Help: "Total number of reasoning oracle calls",
		},
		[]string{"purpose", "status"}, // purpose: reason, decide
	)

	oracleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdlc_oracle_duration_seconds",
			Help:    "Reasoning oracle call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"purpose"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordPipelineExecution records pipeline run metrics.
func RecordPipelineExecution(pipeline string, status string, durationMS int) {
	pipelineExecutionsTotal.WithLabelValues(pipeline, status).Inc()
	pipelineDurationSeconds.WithLabelValues(pipeline).Observe(float64(durationMS) / 1000.0)
}

// RecordStageExecution records stage agent execution metrics.
func RecordStageExecution(stage string, status string, durationMS int) {
	stageExecutionsTotal.WithLabelValues(stage, status).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(float64(durationMS) / 1000.0)
}

// RecordToolInvocation records tool invocation metrics.
// This should be called once per invoke, after the final attempt.
func RecordToolInvocation(tool string, transport string, status string, durationMS int) {
	toolInvocationsTotal.WithLabelValues(tool, transport, status).Inc()
	toolDurationSeconds.WithLabelValues(tool, transport).Observe(float64(durationMS) / 1000.0)
}

// RecordOracleCall records reasoning oracle call metrics.
func RecordOracleCall(purpose string, status string, durationMS int) {
	oracleCallsTotal.WithLabelValues(purpose, status).Inc()
	oracleDurationSeconds.WithLabelValues(purpose).Observe(float64(durationMS) / 1000.0)
}
