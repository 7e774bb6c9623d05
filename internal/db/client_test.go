package db_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/db"
	mock_database "github.com/smartplate/redistribution/internal/db/mocks"
)

type fakeOperators struct {
	existing  map[string]string
	lookupErr error
	created   []string
}

func (f *fakeOperators) Exists(_ context.Context, username string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	_, ok := f.existing[username]
	return ok, nil
}

func (f *fakeOperators) CreateOperator(_ context.Context, username, password string) error {
	f.existing[username] = password
	f.created = append(f.created, username)
	return nil
}

func TestEnsureOperator(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("creates missing operator", func(t *testing.T) {
		ops := &fakeOperators{existing: map[string]string{}}
		assert.NoError(t, db.EnsureOperator(ctx, ops, "admin", "secret", logger))
		assert.Equal(t, []string{"admin"}, ops.created)
	})

	t.Run("keeps existing operator", func(t *testing.T) {
		ops := &fakeOperators{existing: map[string]string{"admin": "hash"}}
		assert.NoError(t, db.EnsureOperator(ctx, ops, "admin", "secret", logger))
		assert.Empty(t, ops.created)
	})

	t.Run("skips without credentials", func(t *testing.T) {
		ops := &fakeOperators{existing: map[string]string{}}
		assert.NoError(t, db.EnsureOperator(ctx, ops, "", "", logger))
		assert.Empty(t, ops.created)
	})

	t.Run("lookup error", func(t *testing.T) {
		ops := &fakeOperators{existing: map[string]string{}, lookupErr: errors.New("db down")}
		assert.Error(t, db.EnsureOperator(ctx, ops, "admin", "secret", logger))
	})
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies schema", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, query string, _ ...interface{}) (pgconn.CommandTag, error) {
				assert.True(t, strings.Contains(query, "CREATE TABLE IF NOT EXISTS requests"))
				assert.True(t, strings.Contains(query, "CREATE TABLE IF NOT EXISTS outbox_tasks"))
				return pgconn.CommandTag("CREATE TABLE"), nil
			})

		assert.NoError(t, db.Migrate(ctx, mockDB, zap.NewNop()))
	})

	t.Run("exec error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any()).Return(nil, errors.New("syntax error"))

		err := db.Migrate(ctx, mockDB, zap.NewNop())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "0001_init.sql")
	})
}
