package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

var errPublisherStopped = errors.New("publisher shutdown during batch processing")

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	LeaseTimeout time.Duration
}

const releaseTimeout = 5 * time.Second

// Publisher relays outbox tasks to the producer. Tasks are claimed by
// marking them PROCESSING in the same transaction that locked them.
// Shutdown must be called after Run returns to close the producer.
type Publisher struct {
	db             db.DB
	repo           storage.OutboxTaskRepository
	producer       Producer
	config         PublisherConfig
	logger         *zap.Logger
	wg             sync.WaitGroup
	shutdownSignal chan struct{}
	stopOnce       sync.Once
	timeNow        func() time.Time
}

func NewPublisher(database db.DB, repo storage.OutboxTaskRepository, producer Producer, config PublisherConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		db:             database,
		repo:           repo,
		producer:       producer,
		config:         config,
		logger:         logger.With(zap.String("component", "outbox-publisher")),
		shutdownSignal: make(chan struct{}),
		timeNow:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("Starting outbox publisher", zap.Duration("poll_interval", p.config.PollInterval))
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("outbox publisher failed to process batch", zap.Error(err))
			}
		case <-p.shutdownSignal:
			p.logger.Info("Outbox publisher received shutdown signal, stopping")
			return
		case <-ctx.Done():
			p.logger.Info("Outbox publisher context cancelled, stopping")
			return
		}
	}
}

func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("Initiating outbox publisher shutdown")
		close(p.shutdownSignal)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			p.logger.Info("Outbox publisher shutdown complete")
		case <-shutdownCtx.Done():
			p.logger.Warn("Outbox publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("failed to close producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for fetching tasks: %w", err)
	}

	tasks, err := p.claim(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction after marking tasks as PROCESSING: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	p.logger.Debug("fetched outbox tasks", zap.Int("count", len(tasks)))

	for i, task := range tasks {
		select {
		case <-p.shutdownSignal:
			p.logger.Warn("shutdown during batch processing", zap.Stringer("task_id", task.ID))
			p.release(tasks[i:])
			return errPublisherStopped
		case <-ctx.Done():
			p.logger.Warn("context cancelled during batch processing", zap.Stringer("task_id", task.ID))
			p.release(tasks[i:])
			return ctx.Err()
		default:
		}

		if err := p.processSingleTask(ctx, task); err != nil {
			p.logger.Error("failed to process outbox task", zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

func (p *Publisher) claim(ctx context.Context, tx db.Tx) ([]*repository.OutboxTask, error) {
	staleBefore := p.timeNow().Add(-p.config.LeaseTimeout)
	tasks, err := p.repo.GetProcessableTasksTx(ctx, tx, p.config.BatchSize, p.config.MaxAttempts, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to get processable tasks: %w", err)
	}
	for _, task := range tasks {
		err := p.repo.UpdateTaskStatusTx(ctx, tx, task.ID, repository.TaskStatusProcessing, task.Attempts, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to mark task %s as PROCESSING: %w", task.ID, err)
		}
	}
	return tasks, nil
}

// release hands claimed but unsent tasks back to the queue. A task that
// cannot be released is picked up again once its lease expires.
func (p *Publisher) release(tasks []*repository.OutboxTask) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	for _, task := range tasks {
		err := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, repository.TaskStatusCreated, task.Attempts, task.LastError, nil)
		if err != nil {
			p.logger.Warn("failed to release outbox task", zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
	p.logger.Info("released unsent outbox tasks", zap.Int("count", len(tasks)))
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) error {
	key := []byte(task.Key)
	if len(key) == 0 {
		key = []byte(task.ID.String())
	}

	err := p.producer.SendMessage(ctx, task.Topic, key, task.Payload)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("outbox_send").Inc()
		attempts := task.Attempts + 1
		errMsg := err.Error()

		if attempts >= p.config.MaxAttempts {
			p.logger.Error("outbox task reached max attempts, giving up",
				zap.Stringer("task_id", task.ID),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		}

		updateErr := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, repository.TaskStatusFailed, attempts, &errMsg, nil)
		if updateErr != nil {
			return fmt.Errorf("failed to update task status after send failure: %w (send error: %v)", updateErr, err)
		}
		return err
	}

	now := p.timeNow()
	if err := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, repository.TaskStatusDone, task.Attempts, nil, &now); err != nil {
		return fmt.Errorf("failed to update task status after successful send: %w", err)
	}
	p.logger.Debug("outbox task published", zap.Stringer("task_id", task.ID), zap.String("topic", task.Topic))
	return nil
}
