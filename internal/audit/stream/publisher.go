// Package stream publishes custody security events to Kafka.
//
// Only integrity failures travel here. Publishing is best-effort: the caller
// has already logged and counted the event, so a broker outage degrades to a
// logged drop behind a circuit breaker rather than slowing reads.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodian/internal/domain"
)

const (
	DefaultTopic = "custodian.security"

	eventIntegrityFailure = "custody.integrity_failure"
	publishTimeout        = 3 * time.Second
)

// ErrCircuitOpen is returned while the broker is considered unreachable.
var ErrCircuitOpen = errors.New("security stream circuit open")

// Producer is the slice of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Publisher struct {
	producer Producer
	topic    string
	breaker  *breaker
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker tunes the circuit breaker guarding the broker.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(p *Publisher) {
		p.breaker = newBreaker(threshold, cooldown)
	}
}

func New(producer Producer, topic string, opts ...Option) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &Publisher{producer: producer, topic: topic, breaker: newBreaker(0, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// NewClient builds a franz-go client producing to topic by default.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
		kgo.RecordDeliveryTimeout(publishTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		topic = DefaultTopic
	}
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

type integrityMessage struct {
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	EvidenceID     string    `json:"evidence_id"`
	RecordID       string    `json:"record_id"`
	Sequence       int64     `json:"sequence"`
	DetectedBy     string    `json:"detected_by"`
	DetectedAt     time.Time `json:"detected_at"`
}

// PublishIntegrityFailure emits one event keyed by evidence id, so events for
// the same item stay ordered within a partition.
func (p *Publisher) PublishIntegrityFailure(ctx context.Context, ev domain.IntegrityEvent) error {
	if !p.breaker.allow() {
		p.metrics.incDropped()
		return ErrCircuitOpen
	}

	value, err := json.Marshal(integrityMessage{
		Type:           eventIntegrityFailure,
		OrganizationID: ev.OrganizationID.String(),
		EvidenceID:     ev.EvidenceID.String(),
		RecordID:       ev.RecordID.String(),
		Sequence:       ev.Sequence,
		DetectedBy:     ev.DetectedBy.String(),
		DetectedAt:     ev.DetectedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal integrity event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.EvidenceID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventIntegrityFailure)},
		},
	}
	if err := p.producer.ProduceSync(pubCtx, rec).FirstErr(); err != nil {
		p.metrics.incFailures()
		if p.breaker.failure() {
			p.logger.WarnContext(ctx, "security stream circuit opened", "log_type", "security", "topic", p.topic, "error", err)
		}
		return fmt.Errorf("publish integrity event: %w", err)
	}
	p.breaker.success()
	p.metrics.incPublished()
	return nil
}

// Metrics for the security stream. A nil *Metrics is a no-op.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Dropped   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_security_events_published_total",
			Help: "Total number of security events published to Kafka",
		}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_security_events_publish_failures_total",
			Help: "Total number of security event publish failures",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "custodian_security_events_dropped_total",
			Help: "Total number of security events dropped while the circuit was open",
		}),
	}
}

func (m *Metrics) incPublished() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) incFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
