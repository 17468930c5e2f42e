package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"matching-core/internal/book"
)

// SaramaPublisher publishes through a sarama synchronous producer
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewSaramaPublisher connects a producer that waits for all replicas
func NewSaramaPublisher(brokers []string, topic string, logger *zap.Logger) (*SaramaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return newSaramaPublisher(producer, topic, logger), nil
}

func newSaramaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *SaramaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaramaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends all events of a transaction in one batch
func (p *SaramaPublisher) Publish(ctx context.Context, bookID book.BookID, events []book.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := Encode(bookID, events, time.Now().UTC())
	if err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(encoded))
	for _, m := range encoded {
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:   p.topic,
			Key:     sarama.ByteEncoder(m.Key),
			Value:   sarama.ByteEncoder(m.Value),
			Headers: []sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte(m.EventType)}},
		})
	}
	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to send %d messages: %w", len(msgs), err)
	}

	p.logger.Debug("events published",
		zap.String("book_id", string(bookID)),
		zap.String("topic", p.topic),
		zap.Int("count", len(msgs)))
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
