package access

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts access decisions by outcome and deciding rule.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the decision counter with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routemanager",
			Name:      "access_decisions_total",
			Help:      "Access decisions by outcome and deciding rule.",
		}, []string{"decision", "rule"}),
	}
	reg.MustRegister(m.decisions)
	return m
}

func (m *Metrics) observe(d Decision, rule string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.String(), rule).Inc()
}
