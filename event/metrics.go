package event

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus instrumentation for the bus.
type Metrics struct {
	emitted         *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
}

// NewMetrics creates bus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alexandria_events_emitted_total",
			Help: "Events emitted on the bus by event name.",
		}, []string{"event"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alexandria_event_handler_failures_total",
			Help: "Handler invocations that returned an error or panicked.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.emitted, m.handlerFailures)
	}
	return m
}
