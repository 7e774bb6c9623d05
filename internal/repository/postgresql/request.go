package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

const uniqueViolation = "23505"

type RequestRepo struct {
	db db.DB
}

func NewRequestRepo(db db.DB) storage.RequestRepository {
	return &RequestRepo{db: db}
}

func (r *RequestRepo) CreateTx(ctx context.Context, tx db.Tx, req *repository.Request) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO requests (
            id, ngo_id, title, lat, lng, quantity, unit, food_category, urgency, status,
            matched_donor_id, matched_volunteer_id, proof_ref, reject_reason, version,
            created_at, expires_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    `, req.ID, req.NGOID, req.Title, req.Lat, req.Lng, req.Quantity, req.Unit, req.FoodCategory, req.Urgency, req.Status,
		req.MatchedDonorID, req.MatchedVolunteerID, req.ProofRef, req.RejectReason, req.Version,
		req.CreatedAt, req.ExpiresAt, req.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *RequestRepo) GetByID(ctx context.Context, id string) (*repository.Request, error) {
	var req repository.Request
	err := r.db.Get(ctx, &req, "SELECT * FROM requests WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateTx only writes when the stored version equals expectedVersion.
func (r *RequestRepo) UpdateTx(ctx context.Context, tx db.Tx, req *repository.Request, expectedVersion int) error {
	tag, err := tx.Exec(ctx, `
        UPDATE requests
        SET
            status = $1,
            matched_donor_id = $2,
            matched_volunteer_id = $3,
            proof_ref = $4,
            reject_reason = $5,
            version = $6,
            updated_at = $7
        WHERE id = $8 AND version = $9
    `, req.Status, req.MatchedDonorID, req.MatchedVolunteerID, req.ProofRef, req.RejectReason, req.Version, req.UpdatedAt,
		req.ID, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

func (r *RequestRepo) ListOpen(ctx context.Context) ([]*repository.Request, error) {
	query := `
        SELECT * FROM requests
        WHERE status NOT IN ('completed', 'rejected', 'expired')
        ORDER BY expires_at ASC
    `
	var requests []*repository.Request
	err := r.db.Select(ctx, &requests, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	return requests, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
