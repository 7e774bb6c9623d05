package postgresql

import (
	"context"
	"fmt"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

// ContributionRepo is append-only: contributions are never updated or deleted.
type ContributionRepo struct {
	db db.DB
}

func NewContributionRepo(db db.DB) storage.ContributionRepository {
	return &ContributionRepo{db: db}
}

func (r *ContributionRepo) CreateTx(ctx context.Context, tx db.Tx, c *repository.Contribution) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO contributions (id, request_id, user_id, role, meals, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, c.ID, c.RequestID, c.UserID, c.Role, c.Meals, c.CreatedAt)
	return err
}

func (r *ContributionRepo) List(ctx context.Context) ([]*repository.Contribution, error) {
	var contributions []*repository.Contribution
	err := r.db.Select(ctx, &contributions, "SELECT * FROM contributions ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return contributions, nil
}
