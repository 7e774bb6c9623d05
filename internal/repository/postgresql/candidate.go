package postgresql

import (
	"context"
	"fmt"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

type CandidateRepo struct {
	db db.DB
}

func NewCandidateRepo(db db.DB) storage.CandidateRepository {
	return &CandidateRepo{db: db}
}

func (r *CandidateRepo) Upsert(ctx context.Context, c *repository.Candidate) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO candidates (
            id, role, name, lat, lng, capacity, max_distance_km, available, trust_score, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            role = EXCLUDED.role,
            name = EXCLUDED.name,
            lat = EXCLUDED.lat,
            lng = EXCLUDED.lng,
            capacity = EXCLUDED.capacity,
            max_distance_km = EXCLUDED.max_distance_km,
            available = EXCLUDED.available,
            trust_score = EXCLUDED.trust_score,
            updated_at = EXCLUDED.updated_at
    `, c.ID, c.Role, c.Name, c.Lat, c.Lng, c.Capacity, c.MaxDistanceKm, c.Available, c.TrustScore, c.UpdatedAt)
	return err
}

func (r *CandidateRepo) List(ctx context.Context) ([]*repository.Candidate, error) {
	var candidates []*repository.Candidate
	err := r.db.Select(ctx, &candidates, "SELECT * FROM candidates ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}
