package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smartplate/redistribution/internal/cache"
	"github.com/smartplate/redistribution/internal/config"
	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/kafka"
	"github.com/smartplate/redistribution/internal/leaderboard"
	"github.com/smartplate/redistribution/internal/lifecycle"
	"github.com/smartplate/redistribution/internal/logger"
	"github.com/smartplate/redistribution/internal/repository/postgresql"
	"github.com/smartplate/redistribution/internal/scoring"
	"github.com/smartplate/redistribution/internal/server"
	"github.com/smartplate/redistribution/internal/storage"
)

// backend is what the rest of the process needs from either storage.
type backend interface {
	lifecycle.Store
	ListContributions(ctx context.Context) ([]storage.ContributionEvent, error)
}

type operators interface {
	db.OperatorStore
	server.UserRepo
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Service gracefully stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var (
		store     backend
		ops       operators
		publisher *kafka.Publisher
	)

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		database, err := db.NewDb(ctx, cfg.Postgres.DSN())
		if err != nil {
			return err
		}
		defer database.Close()

		if cfg.Postgres.Migrate {
			if err := db.Migrate(ctx, database, log); err != nil {
				return err
			}
		}

		outboxRepo := postgresql.NewOutboxTaskRepo()
		store = storage.NewPostgresStorage(database, storage.Repositories{
			Requests:      postgresql.NewRequestRepo(database),
			History:       postgresql.NewHistoryRepo(database),
			Candidates:    postgresql.NewCandidateRepo(database),
			NGOs:          postgresql.NewNGORepo(database),
			Contributions: postgresql.NewContributionRepo(database),
			Outbox:        outboxRepo,
		}, cfg.Kafka.ContributionTopic)
		ops = postgresql.NewOperatorRepo(database)

		var producer kafka.Producer
		if len(cfg.Kafka.Brokers) > 0 {
			producer = kafka.NewBrokerProducer(cfg.Kafka.Brokers, log)
		} else {
			log.Warn("No Kafka brokers configured, contribution events go to the log")
			producer = kafka.NewLogProducer(log)
		}
		publisher = kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
			LeaseTimeout: cfg.Outbox.LeaseTimeout,
		}, log)

	case config.BackendFile:
		fileStore, err := storage.NewFileStorage(cfg.Storage.FilePath)
		if err != nil {
			return err
		}
		store = fileStore
		ops = fileStore
	}

	if err := db.EnsureOperator(ctx, ops, cfg.Admin.Username, cfg.Admin.Password, log); err != nil {
		return err
	}

	scorer, err := newScorer(cfg.Scoring, log)
	if err != nil {
		return err
	}

	requestCache := cache.NewRequestCache(store, log)
	if err := requestCache.LoadInitialData(ctx); err != nil {
		return err
	}

	agg, err := newAggregator(cfg.Leaderboard, log)
	if err != nil {
		return err
	}
	contributions, err := store.ListContributions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load contributions: %w", err)
	}
	if err := agg.Rebuild(contributions); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	log.Info("Leaderboard rebuilt", zap.Int("contributions", len(contributions)))

	service := lifecycle.NewService(store, scorer, requestCache, log)
	service.Subscribe(agg.Handle)

	var board server.Leaderboard = agg
	if cfg.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		lbCache := cache.NewLeaderboardCache(client, agg, cfg.Redis.TTL, log)
		defer func() { _ = lbCache.Close() }()
		service.Subscribe(lbCache.Handle)
		board = lbCache
	}

	audit := server.NewAuditManager(cfg.Audit.Workers, cfg.Audit.BatchSize, cfg.Audit.FlushTimeout, log)
	srv := server.New(service, board, ops, audit, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.RunSweeper(gctx, cfg.Lifecycle.SweepInterval)
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			publisher.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTP.Port)
	})

	err = g.Wait()
	if publisher != nil {
		publisher.Shutdown()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newScorer(cfg config.ScoringConfig, log *zap.Logger) (*scoring.Scorer, error) {
	shelfLife := scoring.DefaultShelfLifeHours()
	for category, hours := range cfg.ShelfLifeHours {
		shelfLife[category] = hours
	}
	spoilage, err := scoring.NewSpoilageEstimator(shelfLife)
	if err != nil {
		return nil, err
	}

	urgency := scoring.DefaultUrgencyPolicy()
	urgency.ThresholdHours = cfg.UrgencyThresholdHours
	urgency.MaxBonus = cfg.UrgencyMaxBonus

	return scoring.NewScorer(scoring.ScorerConfig{
		Weights: scoring.Weights{
			Proximity: cfg.ProximityWeight,
			Urgency:   cfg.UrgencyWeight,
			Capacity:  cfg.CapacityWeight,
		},
		MaxServiceRadiusKm: cfg.MaxServiceRadiusKm,
	}, urgency, spoilage, log)
}

func newAggregator(cfg config.LeaderboardConfig, log *zap.Logger) (*leaderboard.Aggregator, error) {
	lbCfg := leaderboard.DefaultConfig()
	for name, weight := range cfg.RoleWeights {
		role, err := storage.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("leaderboard.role_weights: %w", err)
		}
		lbCfg.RoleWeights[role] = weight
	}
	return leaderboard.NewAggregator(lbCfg, log)
}
