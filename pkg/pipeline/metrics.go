package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for report runs.
type Metrics struct {
	RowsTotal         *prometheus.CounterVec
	ParseDegradations *prometheus.CounterVec
	StageSeconds      *prometheus.HistogramVec
	RunsTotal         *prometheus.CounterVec
	LastRunRows       prometheus.Gauge
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convrep_rows_total",
				Help: "Rows flowing out of each pipeline stage",
			},
			[]string{"stage", "status"},
		),
		ParseDegradations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convrep_parse_degradations_total",
				Help: "Parse failures that fell back to a degraded value",
			},
			[]string{"kind"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convrep_stage_seconds",
				Help:    "Stage latency",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convrep_runs_total",
				Help: "Completed runs by outcome",
			},
			[]string{"status"},
		),
		LastRunRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "convrep_last_run_rows",
				Help: "Aggregated rows published by the most recent run",
			},
		),
	}
}

// RecordStage records row throughput and latency for one stage.
func (m *Metrics) RecordStage(stage string, rows int, seconds float64) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(stage, "ok").Add(float64(rows))
	m.StageSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordDegradation counts one parse fallback.
func (m *Metrics) RecordDegradation(kind string) {
	if m == nil {
		return
	}
	m.ParseDegradations.WithLabelValues(kind).Inc()
}

// RecordRun records the run outcome.
func (m *Metrics) RecordRun(status string, rows int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.LastRunRows.Set(float64(rows))
	}
}
