// Package audit emits operational audit events for the consent and
// identity flows. The compliance-grade trail is the consent_records table
// itself, written inside the same transaction as its profile mutation;
// this publisher is the fire-and-forget operational feed on top of it,
// optionally forwarded to Kafka for downstream consumers.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Actions emitted by this core.
const (
	ActionProfileCreated      = "profile_created"
	ActionProfileSwitched     = "profile_switched"
	ActionConsentGranted      = "consent_granted"
	ActionConsentRevoked      = "consent_revoked"
	ActionOnboardingCompleted = "onboarding_completed"
)

// Event is one operational audit entry.
type Event struct {
	Action    string            `json:"action"`
	AccountID string            `json:"account_id"`
	ProfileID string            `json:"profile_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Publisher logs events and, when configured, forwards them to Kafka.
// Emission never fails the calling operation: failures are logged and
// counted, not propagated.
type Publisher struct {
	logger *slog.Logger
	kafka  *kgo.Client
	topic  string
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithKafka enables forwarding to the given topic.
func WithKafka(client *kgo.Client, topic string) Option {
	return func(p *Publisher) {
		p.kafka = client
		p.topic = topic
	}
}

func New(logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewKafkaClient dials the brokers for the audit feed.
func NewKafkaClient(brokers []string) (*kgo.Client, error) {
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
}

// Emit records the event. The account ID keys the Kafka record so one
// account's events stay ordered per partition.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"account_id", event.AccountID,
		"profile_id", event.ProfileID,
	)

	if p.kafka == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "audit event marshal failed", "action", event.Action, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.AccountID),
		Value: payload,
	}
	p.kafka.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit event produce failed", "action", event.Action, "error", err)
		}
	})
}

// Close flushes and releases the Kafka client when one is configured.
func (p *Publisher) Close() {
	if p.kafka != nil {
		_ = p.kafka.Flush(context.Background())
		p.kafka.Close()
	}
}
