package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"matching-core/internal/book"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes through a kafka-go writer
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a synchronous publisher writing to topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, logger)
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes all events of a transaction in one batch
func (p *KafkaPublisher) Publish(ctx context.Context, bookID book.BookID, events []book.Event) error {
	if len(events) == 0 {
		return nil
	}
	encoded, err := Encode(bookID, events, time.Now().UTC())
	if err != nil {
		return err
	}

	msgs := make([]kafka.Message, 0, len(encoded))
	for _, m := range encoded {
		msgs = append(msgs, kafka.Message{
			Key:     m.Key,
			Value:   m.Value,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(m.EventType)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages: %w", len(msgs), err)
	}

	p.logger.Debug("events published",
		zap.String("book_id", string(bookID)),
		zap.Int("count", len(msgs)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
