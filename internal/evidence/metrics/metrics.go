package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the evidence registry. A nil *Metrics is a no-op.
type Metrics struct {
	EvidenceCreated    prometheus.Counter
	EvidenceUpdated    prometheus.Counter
	EvidenceDeleted    prometheus.Counter
	FileUnlinkFailures prometheus.Counter
	HashChecks         *prometheus.CounterVec
	AggregateDrift     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		EvidenceCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_evidence_created_total",
			Help: "Total number of evidence items created",
		}),
		EvidenceUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_evidence_updated_total",
			Help: "Total number of evidence metadata updates",
		}),
		EvidenceDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_evidence_deleted_total",
			Help: "Total number of evidence items deleted",
		}),
		FileUnlinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_evidence_file_unlink_failures_total",
			Help: "Total number of stored files left behind after evidence deletion",
		}),
		HashChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custodian_evidence_hash_checks_total",
			Help: "Total number of content hash checks by result",
		}, []string{"result"}),
		AggregateDrift: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_case_aggregate_drift_total",
			Help: "Total number of recounts that found drifted case aggregates",
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.EvidenceCreated.Inc()
	}
}

func (m *Metrics) IncUpdated() {
	if m != nil {
		m.EvidenceUpdated.Inc()
	}
}

func (m *Metrics) IncDeleted() {
	if m != nil {
		m.EvidenceDeleted.Inc()
	}
}

func (m *Metrics) IncUnlinkFailure() {
	if m != nil {
		m.FileUnlinkFailures.Inc()
	}
}

func (m *Metrics) IncHashCheck(match bool) {
	if m == nil {
		return
	}
	result := "match"
	if !match {
		result = "mismatch"
	}
	m.HashChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAggregateDrift() {
	if m != nil {
		m.AggregateDrift.Inc()
	}
}
