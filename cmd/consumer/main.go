package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/config"
	"github.com/smartplate/redistribution/internal/kafka"
	"github.com/smartplate/redistribution/internal/leaderboard"
	"github.com/smartplate/redistribution/internal/logger"
)

const reportInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("kafka.brokers must be set for the contribution consumer")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	agg, err := leaderboard.NewAggregator(leaderboard.DefaultConfig(), log)
	if err != nil {
		log.Fatal("Failed to build leaderboard", zap.Error(err))
	}

	consumer := kafka.NewContributionConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ContributionTopic,
		GroupID: cfg.Kafka.ConsumerGroup,
	}, agg.Handle, log)
	defer func() {
		if err := consumer.Close(); err != nil {
			log.Error("Error closing Kafka reader", zap.Error(err))
		}
	}()

	go report(ctx, agg, log)

	log.Info("Consumer connected",
		zap.String("topic", cfg.Kafka.ContributionTopic),
		zap.Strings("brokers", cfg.Kafka.Brokers),
	)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped with error", zap.Error(err))
		return
	}
	log.Info("Consumer stopped")
}

// report logs the top of the standings and the impact totals periodically.
func report(ctx context.Context, agg *leaderboard.Aggregator, log *zap.Logger) {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			top := agg.Ranked("")
			if len(top) > 5 {
				top = top[:5]
			}
			fields := []zap.Field{zap.Any("impact", agg.Impact())}
			for _, e := range top {
				fields = append(fields, zap.Float64(fmt.Sprintf("%d.%s", e.Rank, e.UserID), e.Score))
			}
			log.Info("Leaderboard", fields...)
		}
	}
}
