package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus instrumentation for the orchestrator.
type Metrics struct {
	activeIngestions prometheus.Gauge
	runs             *prometheus.CounterVec
}

// NewMetrics creates orchestrator metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeIngestions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alexandria_active_ingestions",
			Help: "Ingestion runs currently in flight.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alexandria_ingestion_runs_total",
			Help: "Finished ingestion runs by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.activeIngestions, m.runs)
	}
	return m
}
