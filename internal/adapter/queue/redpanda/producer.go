// Package redpanda publishes interview lifecycle events to Redpanda/Kafka.
package redpanda

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

// TopicInterviewCompleted carries the final report of each finished interview.
const TopicInterviewCompleted = "interview-completed"

// Producer wraps a Kafka producer and implements domain.EventPublisher.
// Publishing is best-effort: a completed interview is already answered to the
// candidate, so delivery failures are logged and never surfaced.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer constructs a Producer against the given seed brokers.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=events.producer: no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.producer: %w", err)
	}
	slog.Info("event producer created", slog.Any("brokers", brokers), slog.String("topic", TopicInterviewCompleted))
	return &Producer{client: client, topic: TopicInterviewCompleted}, nil
}

// PublishCompleted produces one completion report keyed by candidate id.
func (p *Producer) PublishCompleted(ctx domain.Context, r domain.CompletionReport) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(r.CandidateID), Value: b}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("op=events.publish: %w", err)
	}
	slog.Info("interview completion published",
		slog.String("candidate_id", r.CandidateID),
		slog.String("jd_id", r.JobDescriptionID),
		slog.String("qualification_score", r.QualificationScore))
	return nil
}

// Ping verifies broker connectivity. Used by the readiness probe.
func (p *Producer) Ping(ctx domain.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and shuts the underlying client down.
func (p *Producer) Close() error {
	p.client.Close()
	return nil
}
