package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts auth operation outcomes. Labels stay low-cardinality:
// operation is one of the fixed endpoint names, outcome is ok/denied/error.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics builds the auth counters and registers them on reg.
// A nil registerer yields working but unregistered counters, which keeps
// tests free of global registry conflicts.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reelist",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operation outcomes by endpoint.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *Metrics) observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

const (
	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)
