package postgresql

import (
	"context"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) storage.HistoryRepository {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO request_history (
            request_id, status, event, candidate_id, note, changed_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `, entry.RequestID, entry.Status, entry.Event, entry.CandidateID, entry.Note, entry.ChangedAt)
	return err
}

func (r *HistoryRepo) GetByRequestID(ctx context.Context, requestID string) ([]*repository.HistoryEntry, error) {
	var entries []*repository.HistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT * FROM request_history
        WHERE request_id = $1
        ORDER BY changed_at ASC, id ASC
    `, requestID)
	return entries, err
}
