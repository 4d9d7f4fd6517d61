package interfaces

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"balance-recon/internal/reconciliation/application"
)

// DefaultTopic carries reconciliation completed events.
const DefaultTopic = "balance_reconciliation_completed"

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes reconciliation completed events as JSON.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher constructs a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka publisher: nil writer")
	}
	return &KafkaPublisher{writer: writer}, nil
}

// PublishReconciliationCompleted writes the event keyed by report date, so
// events for one day land on one partition in order.
func (p *KafkaPublisher) PublishReconciliationCompleted(ctx context.Context, event application.ReconciliationCompleted) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher: nil publisher")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ReportDate),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("ReconciliationCompleted")},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
