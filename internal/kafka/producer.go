package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BrokerProducer writes to a Kafka cluster. The topic is set per message, so
// one writer serves every outbox topic.
type BrokerProducer struct {
	writer messageWriter
	logger *zap.Logger
}

func NewBrokerProducer(brokers []string, logger *zap.Logger) *BrokerProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newBrokerProducer(writer, logger)
}

func newBrokerProducer(writer messageWriter, logger *zap.Logger) *BrokerProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Initialized Kafka producer")
	return &BrokerProducer{writer: writer, logger: logger.With(zap.String("component", "kafka-producer"))}
}

func (p *BrokerProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	p.logger.Debug("message sent", zap.String("topic", topic), zap.ByteString("key", key))
	return nil
}

func (p *BrokerProducer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}

// LogProducer logs messages instead of sending them. It is used when no
// brokers are configured.
type LogProducer struct {
	logger *zap.Logger
}

func NewLogProducer(logger *zap.Logger) Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Initialized log producer, no Kafka brokers configured")
	return &LogProducer{logger: logger.With(zap.String("component", "log-producer"))}
}

func (p *LogProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("message cancelled", zap.String("topic", topic), zap.ByteString("key", key))
		return err
	}
	p.logger.Info("message",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.ByteString("value", value),
	)
	return nil
}

func (p *LogProducer) Close() error {
	p.logger.Info("Closing log producer")
	return nil
}
