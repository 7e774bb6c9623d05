package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

// Handler consumes one decoded contribution.
type Handler func(ctx context.Context, ev storage.ContributionEvent) error

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ContributionConsumer reads contribution messages and passes them to a
// handler. A message is committed once the handler accepted it or once it
// is known to be unprocessable, so a bad message never blocks the partition.
type ContributionConsumer struct {
	reader     messageReader
	handle     Handler
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewContributionConsumer(cfg ConsumerConfig, handle Handler, logger *zap.Logger) *ContributionConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
	})
	return newContributionConsumer(reader, handle, logger)
}

func newContributionConsumer(reader messageReader, handle Handler, logger *zap.Logger) *ContributionConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributionConsumer{
		reader:     reader,
		handle:     handle,
		logger:     logger.With(zap.String("component", "contribution-consumer")),
		retryDelay: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (c *ContributionConsumer) Run(ctx context.Context) error {
	c.logger.Info("Starting contribution consumer")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context cancelled, stopping contribution consumer")
				return nil
			}
			c.logger.Error("failed to read message", zap.Error(err))
			select {
			case <-time.After(c.retryDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if err := c.process(ctx, m); err != nil {
			return err
		}
	}
}

func (c *ContributionConsumer) process(ctx context.Context, m kafka.Message) error {
	log := c.logger.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	ev, err := DecodeContribution(m.Value)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("decode_contribution").Inc()
		log.Warn("skipping undecodable contribution", zap.Error(err))
	} else if err := c.handle(ctx, ev); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("consume_contribution").Inc()
		log.Warn("contribution rejected", zap.String("event_id", ev.ID), zap.Error(err))
	} else {
		metrics.ContributionsIngestedTotal.WithLabelValues(string(ev.Role)).Inc()
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to commit offset %d: %w", m.Offset, err)
	}
	return nil
}

func (c *ContributionConsumer) Close() error {
	c.logger.Info("Closing Kafka reader")
	return c.reader.Close()
}

// DecodeContribution parses a message body written by the outbox.
func DecodeContribution(value []byte) (storage.ContributionEvent, error) {
	var payload repository.ContributionPayload
	if err := json.Unmarshal(value, &payload); err != nil {
		return storage.ContributionEvent{}, fmt.Errorf("invalid contribution payload: %w", err)
	}
	role, err := storage.ParseRole(payload.Role)
	if err != nil {
		return storage.ContributionEvent{}, err
	}
	return storage.ContributionEvent{
		ID:        payload.EventID,
		RequestID: payload.RequestID,
		UserID:    payload.UserID,
		Role:      role,
		Meals:     payload.Meals,
		Timestamp: payload.Timestamp.UTC(),
	}, nil
}
