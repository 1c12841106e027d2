package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// OrderEventPublisher is implemented by the Kafka producer; services
// accept the interface so tests can capture events.
type OrderEventPublisher interface {
	SendOrderEvent(evt models.OrderEvent) error
}

// Producer publishes order-lifecycle events. Callers treat publishing
// as best-effort and only log failures.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("kafka producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &Producer{writer: w, logger: logger}
}

func (p *Producer) SendOrderEvent(evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
	}
	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Warn("failed to publish order event",
			zap.String("type", evt.Type),
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
