package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shopcore/fulfillment/internal/audit"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// AuditSink ships audit events to the collector's topic.
type AuditSink struct {
	producer *Producer
}

func NewAuditSink(brokers []string, topic string) *AuditSink {
	return &AuditSink{producer: NewProducer(brokers, topic)}
}

func (s *AuditSink) Record(ctx context.Context, event audit.Event) error {
	return s.producer.Publish(ctx, event.Operation, event)
}

func (s *AuditSink) Close() error { return s.producer.Close() }

// NotificationSink ships notification events to the sender's topic.
type NotificationSink struct {
	producer *Producer
}

func NewNotificationSink(brokers []string, topic string) *NotificationSink {
	return &NotificationSink{producer: NewProducer(brokers, topic)}
}

func (s *NotificationSink) Record(ctx context.Context, notification audit.Notification) error {
	return s.producer.Publish(ctx, notification.Operation, notification)
}

func (s *NotificationSink) Close() error { return s.producer.Close() }
