package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit trail. A nil *Metrics is a no-op.
type Metrics struct {
	Appended          prometheus.Counter
	SecondaryFailures prometheus.Counter
	Spilled           prometheus.Counter
	SpillFailures     prometheus.Counter
	Replayed          prometheus.Counter
}

// NewMetrics registers the audit metrics with reg (the default registry when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Appended: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_audit_appended_total",
			Help: "Total number of audit entries persisted",
		}),
		SecondaryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_audit_secondary_failures_total",
			Help: "Total number of secondary audit writes that failed and were swallowed",
		}),
		Spilled: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_audit_spilled_total",
			Help: "Total number of audit entries parked in the spill queue",
		}),
		SpillFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_audit_spill_failures_total",
			Help: "Total number of audit entries lost because the spill queue was unavailable",
		}),
		Replayed: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_audit_replayed_total",
			Help: "Total number of spilled audit entries replayed into the store",
		}),
	}
}

func (m *Metrics) IncAppended() {
	if m != nil {
		m.Appended.Inc()
	}
}

func (m *Metrics) IncSecondaryFailures() {
	if m != nil {
		m.SecondaryFailures.Inc()
	}
}

func (m *Metrics) IncSpilled() {
	if m != nil {
		m.Spilled.Inc()
	}
}

func (m *Metrics) IncSpillFailures() {
	if m != nil {
		m.SpillFailures.Inc()
	}
}

func (m *Metrics) AddReplayed(n int) {
	if m != nil && n > 0 {
		m.Replayed.Add(float64(n))
	}
}
