package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

func NewDb(ctx context.Context, dsn string) (*Database, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewDatabase(pool), nil
}

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent so Migrate runs on each start.
func Migrate(ctx context.Context, database DB, logger *zap.Logger) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := database.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		logger.Info("Migration applied", zap.String("file", name))
	}
	return nil
}

type OperatorStore interface {
	Exists(ctx context.Context, username string) (bool, error)
	CreateOperator(ctx context.Context, username, password string) error
}

// EnsureOperator creates the bootstrap operator account when it is missing.
func EnsureOperator(ctx context.Context, ops OperatorStore, username, password string, logger *zap.Logger) error {
	if username == "" || password == "" {
		logger.Warn("Admin credentials not configured, skipping operator bootstrap")
		return nil
	}

	exists, err := ops.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up operator %s: %w", username, err)
	}
	if exists {
		logger.Info("Admin operator already exists", zap.String("username", username))
		return nil
	}

	if err := ops.CreateOperator(ctx, username, password); err != nil {
		return fmt.Errorf("failed to create operator %s: %w", username, err)
	}
	logger.Info("Admin operator created", zap.String("username", username))
	return nil
}
