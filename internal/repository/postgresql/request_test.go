package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/smartplate/redistribution/internal/db/mocks"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/repository/postgresql"
)

func testRequestRow() *repository.Request {
	created := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	return &repository.Request{
		ID:           "req-123",
		NGOID:        "ngo-1",
		Title:        "Rice and dal",
		Lat:          12.97,
		Lng:          77.59,
		Quantity:     40,
		Unit:         "meals",
		FoodCategory: "cooked",
		Urgency:      "high",
		Status:       "pending",
		Version:      1,
		CreatedAt:    created,
		ExpiresAt:    created.Add(6 * time.Hour),
		UpdatedAt:    created,
	}
}

func TestRequestRepo_CreateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)
		req := testRequestRow()

		mockTx.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(req.ID),
			gomock.Eq(req.NGOID),
			gomock.Eq(req.Title),
			gomock.Eq(req.Lat),
			gomock.Eq(req.Lng),
			gomock.Eq(req.Quantity),
			gomock.Eq(req.Unit),
			gomock.Eq(req.FoodCategory),
			gomock.Eq(req.Urgency),
			gomock.Eq(req.Status),
			gomock.Eq(req.MatchedDonorID),
			gomock.Eq(req.MatchedVolunteerID),
			gomock.Eq(req.ProofRef),
			gomock.Eq(req.RejectReason),
			gomock.Eq(req.Version),
			gomock.Eq(req.CreatedAt),
			gomock.Eq(req.ExpiresAt),
			gomock.Eq(req.UpdatedAt),
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		assert.NoError(t, repo.CreateTx(ctx, mockTx, req))
	})

	t.Run("duplicate id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), anyArgs(18)...).
			Return(nil, &pgconn.PgError{Code: "23505"})

		err := repo.CreateTx(ctx, mockTx, testRequestRow())
		assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		expectedErr := errors.New("database error")
		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), anyArgs(18)...).Return(nil, expectedErr)

		err := repo.CreateTx(ctx, mockTx, testRequestRow())
		assert.Equal(t, expectedErr, err)
	})
}

func TestRequestRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("request found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)
		want := testRequestRow()

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq(want.ID)).
			DoAndReturn(func(_ context.Context, dest *repository.Request, _ string, _ string) error {
				*dest = *want
				return nil
			})

		got, err := repo.GetByID(ctx, want.ID)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("request not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.Nil(t, got)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		expectedErr := errors.New("connection reset")
		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(expectedErr)

		got, err := repo.GetByID(ctx, "req-123")
		assert.Equal(t, expectedErr, err)
		assert.Nil(t, got)
	})
}

func TestRequestRepo_UpdateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("version matches", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		req := testRequestRow()
		req.Status = "approved"
		req.Version = 2

		mockTx.EXPECT().Exec(
			gomock.Any(),
			gomock.Any(),
			gomock.Eq(req.Status),
			gomock.Eq(req.MatchedDonorID),
			gomock.Eq(req.MatchedVolunteerID),
			gomock.Eq(req.ProofRef),
			gomock.Eq(req.RejectReason),
			gomock.Eq(2),
			gomock.Eq(req.UpdatedAt),
			gomock.Eq(req.ID),
			gomock.Eq(1),
		).Return(pgconn.CommandTag("UPDATE 1"), nil)

		assert.NoError(t, repo.UpdateTx(ctx, mockTx, req, 1))
	})

	t.Run("stale version", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), anyArgs(9)...).Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateTx(ctx, mockTx, testRequestRow(), 1)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	})
}

func TestRequestRepo_ListOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)
		want := []*repository.Request{testRequestRow()}

		mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, dest *[]*repository.Request, _ string, _ ...interface{}) error {
				*dest = want
				return nil
			})

		got, err := repo.ListOpen(ctx)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewRequestRepo(mockDB)

		mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("timeout"))

		_, err := repo.ListOpen(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list open requests")
	})
}

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = gomock.Any()
	}
	return out
}
