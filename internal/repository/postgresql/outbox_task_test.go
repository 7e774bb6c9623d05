package postgresql_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/smartplate/redistribution/internal/db/mocks"
	"github.com/smartplate/redistribution/internal/repository"
	"github.com/smartplate/redistribution/internal/repository/postgresql"
)

func TestOutboxTaskRepo_CreateTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mock_database.NewMockTx(ctrl)
	repo := postgresql.NewOutboxTaskRepo()

	task := &repository.OutboxTask{
		Topic:   "smartplate.contributions",
		Key:     "donor-1",
		Payload: json.RawMessage(`{"event_id":"ev-1"}`),
	}

	mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(),
		gomock.Any(),
		gomock.Eq(repository.TaskStatusCreated),
		gomock.Eq(task.Payload),
		gomock.Eq(task.Topic),
		gomock.Eq(task.Key),
		gomock.Any(),
		gomock.Any(),
	).Return(pgconn.CommandTag("INSERT 0 1"), nil)

	assert.NoError(t, repo.CreateTx(ctx, mockTx, task))
	assert.NotEqual(t, uuid.Nil, task.ID)
}

func TestOutboxTaskRepo_GetProcessableTasksTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTx := mock_database.NewMockTx(ctrl)
	repo := postgresql.NewOutboxTaskRepo()
	want := []*repository.OutboxTask{{ID: uuid.New(), Status: repository.TaskStatusCreated}}
	staleBefore := time.Date(2025, 4, 4, 11, 59, 0, 0, time.UTC)

	mockTx.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Eq(repository.TaskStatusCreated),
		gomock.Eq(repository.TaskStatusFailed),
		gomock.Eq(5),
		gomock.Eq(repository.TaskStatusProcessing),
		gomock.Eq(staleBefore),
		gomock.Eq(10),
	).DoAndReturn(func(_ context.Context, dest *[]*repository.OutboxTask, _ string, _ ...interface{}) error {
		*dest = want
		return nil
	})

	got, err := repo.GetProcessableTasksTx(ctx, mockTx, 10, 5, staleBefore)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOutboxTaskRepo_UpdateTaskStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	completed := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)

	t.Run("updated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(),
			gomock.Eq(id), gomock.Eq(repository.TaskStatusDone), gomock.Eq(0), gomock.Nil(), gomock.Eq(&completed), gomock.Any(),
		).Return(pgconn.CommandTag("UPDATE 1"), nil)

		assert.NoError(t, repo.UpdateTaskStatus(ctx, mockDB, id, repository.TaskStatusDone, 0, nil, &completed))
	})

	t.Run("missing task", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), anyArgs(6)...).Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateTaskStatusTx(ctx, mockTx, id, repository.TaskStatusProcessing, 0, nil, nil)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}
