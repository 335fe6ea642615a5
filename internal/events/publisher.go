// Package events emits consultation domain events to the platform's broker.
// Delivery is best-effort: the orchestrator logs and discards publish errors,
// so adapters must never block longer than their configured timeout.
package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"consultation-service/internal/config"
)

// Publisher emits a payload to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// KafkaPublisher publishes events through a shared kafka-go writer.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher over the configured brokers. The
// topic is set per message so one writer serves all event types.
func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			WriteTimeout:           cfg.PublishTimeout,
			AllowAutoTopicCreation: true,
		},
		timeout: cfg.PublishTimeout,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	// Detach from the request deadline but stay bounded, so a slow broker
	// cannot hold the calling request open.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
