package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the custody ledger. A nil *Metrics is a no-op.
type Metrics struct {
	ActionsRecorded         *prometheus.CounterVec
	IntegrityChecks         *prometheus.CounterVec
	SecurityPublishFailures prometheus.Counter
	AppendDuration          prometheus.Histogram
}

// New registers the custody metrics with reg (the default registry when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ActionsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_custody_actions_recorded_total",
			Help: "Total number of custody records appended, by action kind",
		}, []string{"action"}),
		IntegrityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_custody_integrity_checks_total",
			Help: "Custody signature verifications, by result",
		}, []string{"result"}),
		SecurityPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_custody_security_publish_failures_total",
			Help: "Integrity failures that could not be published to the security stream",
		}),
		AppendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodian_custody_append_duration_seconds",
			Help:    "Duration of RecordCustodyAction including signing and commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncActionRecorded counts an append. action is a fixed action name or
// "custom"; case-defined names are not used as labels.
func (m *Metrics) IncActionRecorded(action string) {
	if m == nil {
		return
	}
	m.ActionsRecorded.WithLabelValues(action).Inc()
}

func (m *Metrics) IncIntegrityVerified() {
	if m == nil {
		return
	}
	m.IntegrityChecks.WithLabelValues("verified").Inc()
}

func (m *Metrics) IncIntegrityFailed() {
	if m == nil {
		return
	}
	m.IntegrityChecks.WithLabelValues("failed").Inc()
}

func (m *Metrics) IncSecurityPublishFailure() {
	if m == nil {
		return
	}
	m.SecurityPublishFailures.Inc()
}

// ObserveAppend records the duration of a custody append.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAppend(start time.Time) {
	if m == nil {
		return
	}
	m.AppendDuration.Observe(time.Since(start).Seconds())
}
