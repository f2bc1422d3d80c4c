package qa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks checklist activity. A nil *Metrics is a no-op.
type Metrics struct {
	ResponsesCreated prometheus.Counter
	Transitions      *prometheus.CounterVec
}

// NewMetrics registers the QA metrics with reg (the default registry when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ResponsesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_qa_responses_created_total",
			Help: "Checklist responses created by applying templates",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_qa_response_transitions_total",
			Help: "Checklist response state changes, by transition",
		}, []string{"transition"}),
	}
}

func (m *Metrics) addResponsesCreated(n int) {
	if m != nil && n > 0 {
		m.ResponsesCreated.Add(float64(n))
	}
}

func (m *Metrics) incTransition(t string) {
	if m != nil {
		m.Transitions.WithLabelValues(t).Inc()
	}
}
