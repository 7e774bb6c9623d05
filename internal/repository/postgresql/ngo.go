package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/storage"
)

type NGORepo struct {
	db db.DB
}

func NewNGORepo(db db.DB) storage.NGORepository {
	return &NGORepo{db: db}
}

func (r *NGORepo) Upsert(ctx context.Context, ngo *repository.NGO) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO ngos (id, name, verified, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            verified = EXCLUDED.verified,
            updated_at = EXCLUDED.updated_at
    `, ngo.ID, ngo.Name, ngo.Verified, ngo.UpdatedAt)
	return err
}

func (r *NGORepo) GetByID(ctx context.Context, id string) (*repository.NGO, error) {
	var ngo repository.NGO
	err := r.db.Get(ctx, &ngo, "SELECT * FROM ngos WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &ngo, nil
}
