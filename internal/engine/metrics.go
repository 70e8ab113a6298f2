package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mydailyprop"

const (
	outcomeSuccess   = "success"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
	outcomeTimeout   = "timeout"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	ActiveRuns    prometheus.Gauge
	StageDuration *prometheus.HistogramVec
	ChunksTotal   *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg. A
// nil reg leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal outcome.",
		}, []string{"outcome"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "active_runs",
			Help:      "Pipeline runs currently executing.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Stage wall time by stage and outcome.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"stage", "outcome"}),
		ChunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "chunks_total",
			Help:      "Streamed text chunks by stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.RunsTotal, m.ActiveRuns, m.StageDuration, m.ChunksTotal)
	}
	return m
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

func (m *Metrics) runFinished(outcome string) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) stageFinished(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

func (m *Metrics) chunk(stage string) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(stage).Inc()
}
