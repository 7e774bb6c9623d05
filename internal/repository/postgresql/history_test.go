package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/smartplate/redistribution/internal/db/mocks"
	"github.com/smartplate/redistribution/internal/repository"
)

func TestHistoryRepo_CreateTx(t *testing.T) {
	ctx := context.Background()
	changed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewHistoryRepo(mockDB)

		entry := &repository.HistoryEntry{
			RequestID:   "req-1",
			Status:      "matched",
			Event:       "match",
			CandidateID: "donor-7",
			ChangedAt:   changed,
		}

		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(),
				gomock.Eq(entry.RequestID),
				gomock.Eq(entry.Status),
				gomock.Eq(entry.Event),
				gomock.Eq(entry.CandidateID),
				gomock.Eq(entry.Note),
				gomock.Eq(entry.ChangedAt)).
			Return(nil, nil)

		assert.NoError(t, repo.CreateTx(ctx, mockTx, entry))
	})

	t.Run("DB Error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewHistoryRepo(mockDB)

		dbErr := errors.New("database error")
		mockTx.EXPECT().
			Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dbErr)

		err := repo.CreateTx(ctx, mockTx, &repository.HistoryEntry{RequestID: "req-1"})
		assert.Equal(t, dbErr, err)
	})
}

func TestHistoryRepo_GetByRequestID(t *testing.T) {
	ctx := context.Background()
	changed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)

		expected := []*repository.HistoryEntry{
			{ID: 1, RequestID: "req-1", Status: "pending", Event: "create", ChangedAt: changed},
			{ID: 2, RequestID: "req-1", Status: "approved", Event: "approve", ChangedAt: changed.Add(time.Hour)},
		}

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("req-1")).
			DoAndReturn(func(_ context.Context, dest *[]*repository.HistoryEntry, _ string, _ string) error {
				*dest = expected
				return nil
			})

		entries, err := repo.GetByRequestID(ctx, "req-1")
		assert.NoError(t, err)
		assert.Equal(t, expected, entries)
	})

	t.Run("No Entries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)

		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("req-2")).
			Return(nil)

		entries, err := repo.GetByRequestID(ctx, "req-2")
		assert.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("DB Error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)

		dbErr := errors.New("database error")
		mockDB.EXPECT().
			Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dbErr)

		entries, err := repo.GetByRequestID(ctx, "req-1")
		assert.Equal(t, dbErr, err)
		assert.Nil(t, entries)
	})
}
