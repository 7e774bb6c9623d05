package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/storage"
)

// OperatorRepo stores the accounts allowed to call write endpoints.
type OperatorRepo struct {
	db db.DB
}

func NewOperatorRepo(db db.DB) storage.OperatorRepository {
	return &OperatorRepo{db: db}
}

func (r *OperatorRepo) CreateOperator(ctx context.Context, username, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		"INSERT INTO operators (username, password) VALUES ($1, $2)",
		username, string(hashedPassword))
	return err
}

func (r *OperatorRepo) Exists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := r.db.ExecQueryRow(ctx, "SELECT COUNT(*) FROM operators WHERE username = $1", username).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ValidateUser reports false without error for unknown users and wrong passwords.
func (r *OperatorRepo) ValidateUser(ctx context.Context, username, password string) (bool, error) {
	var hashedPassword string
	err := r.db.ExecQueryRow(ctx,
		"SELECT password FROM operators WHERE username = $1", username).Scan(&hashedPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}
