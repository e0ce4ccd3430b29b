// Package metrics registers and exposes Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	RecommendationTransitions *prometheus.CounterVec
	GateBlockedWorkflows      prometheus.Gauge
	GateEvaluationsTotal      *prometheus.CounterVec

	AnalysisTriggersTotal *prometheus.CounterVec
	AnalysisRunsActive    prometheus.Gauge
	AnalysisPollTicks     prometheus.Counter
	AnalysisRunDuration   prometheus.Histogram

	ControllerReconcilesTotal *prometheus.CounterVec
	ControllerReconcileErrors *prometheus.CounterVec
	ControllerRunning         *prometheus.GaugeVec
	ControllerLastReconcile   *prometheus.GaugeVec
}

// New creates a Metrics with its own registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		HTTPRequestsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_active",
			Help:      "Number of HTTP requests currently being served.",
		}),

		RecommendationTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_transitions_total",
			Help:      "Total recommendation lifecycle transitions by target status.",
		}, []string{"to_status"}),

		GateBlockedWorkflows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_blocked_workflows",
			Help:      "Number of workflows whose last gate evaluation was blocked.",
		}),

		GateEvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_evaluations_total",
			Help:      "Total gate evaluations by decision.",
		}, []string{"decision"}),

		AnalysisTriggersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_triggers_total",
			Help:      "Total analysis trigger attempts by outcome.",
		}, []string{"outcome"}),

		AnalysisRunsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_runs_active",
			Help:      "Number of analysis runs currently queued or running.",
		}),

		AnalysisPollTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_poll_ticks_total",
			Help:      "Total status poll ticks performed while analysis was active.",
		}),

		AnalysisRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_run_duration_seconds",
			Help:      "Dynamic analysis run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		ControllerReconcilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "controller_reconciles_total",
			Help:      "Total controller reconcile iterations.",
		}, []string{"controller", "result"}),

		ControllerReconcileErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "controller_reconcile_errors_total",
			Help:      "Total controller reconcile errors.",
		}, []string{"controller"}),

		ControllerRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_running",
			Help:      "Whether the controller is running (1) or not (0).",
		}, []string{"controller"}),

		ControllerLastReconcile: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_last_reconcile_timestamp_seconds",
			Help:      "Unix timestamp of the last reconcile per controller.",
		}, []string{"controller"}),
	}
}

// Service metrics adapters.

// IncTransition records a recommendation lifecycle transition.
func (m *Metrics) IncTransition(toStatus string) {
	m.RecommendationTransitions.WithLabelValues(toStatus).Inc()
}

// IncGateEvaluation records a gate evaluation by decision.
func (m *Metrics) IncGateEvaluation(decision string) {
	m.GateEvaluationsTotal.WithLabelValues(decision).Inc()
}

// IncTrigger records an analysis trigger attempt by outcome.
func (m *Metrics) IncTrigger(outcome string) {
	m.AnalysisTriggersTotal.WithLabelValues(outcome).Inc()
}

// IncPollTick records one status poll tick.
func (m *Metrics) IncPollTick() {
	m.AnalysisPollTicks.Inc()
}

// ObserveRunDuration records a finished analysis run's duration.
func (m *Metrics) ObserveRunDuration(d time.Duration) {
	m.AnalysisRunDuration.Observe(d.Seconds())
}

// Controller manager metrics adapter.

// RecordReconcile records a reconciliation run.
func (m *Metrics) RecordReconcile(controller string, itemsProcessed int, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.ControllerReconcilesTotal.WithLabelValues(controller, result).Inc()
}

// SetControllerRunning sets whether a controller is running.
func (m *Metrics) SetControllerRunning(controller string, running bool) {
	v := 0.0
	if running {
		v = 1.0
	}
	m.ControllerRunning.WithLabelValues(controller).Set(v)
}

// IncrementReconcileErrors increments the error counter.
func (m *Metrics) IncrementReconcileErrors(controller string) {
	m.ControllerReconcileErrors.WithLabelValues(controller).Inc()
}

// SetLastReconcileTime sets the last reconcile timestamp.
func (m *Metrics) SetLastReconcileTime(controller string, t time.Time) {
	m.ControllerLastReconcile.WithLabelValues(controller).Set(float64(t.Unix()))
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
