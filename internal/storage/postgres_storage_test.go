package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/smartplate/redistribution/internal/db"
	mock_db "github.com/smartplate/redistribution/internal/db/mocks"
	"github.com/smartplate/redistribution/internal/geo"
	"github.com/smartplate/redistribution/internal/repository"
	mock_storage "github.com/smartplate/redistribution/internal/storage/mocks"
)

type storageMocks struct {
	db            *mock_db.MockDB
	tx            *mock_db.MockTx
	requests      *mock_storage.MockRequestRepository
	history       *mock_storage.MockHistoryRepository
	candidates    *mock_storage.MockCandidateRepository
	ngos          *mock_storage.MockNGORepository
	contributions *mock_storage.MockContributionRepository
	outbox        *mock_storage.MockOutboxTaskRepository
}

func newTestStorage(t *testing.T) (*PostgresStorage, storageMocks) {
	ctrl := gomock.NewController(t)
	m := storageMocks{
		db:            mock_db.NewMockDB(ctrl),
		tx:            mock_db.NewMockTx(ctrl),
		requests:      mock_storage.NewMockRequestRepository(ctrl),
		history:       mock_storage.NewMockHistoryRepository(ctrl),
		candidates:    mock_storage.NewMockCandidateRepository(ctrl),
		ngos:          mock_storage.NewMockNGORepository(ctrl),
		contributions: mock_storage.NewMockContributionRepository(ctrl),
		outbox:        mock_storage.NewMockOutboxTaskRepository(ctrl),
	}
	s := NewPostgresStorage(m.db, Repositories{
		Requests:      m.requests,
		History:       m.history,
		Candidates:    m.candidates,
		NGOs:          m.ngos,
		Contributions: m.contributions,
		Outbox:        m.outbox,
	}, "smartplate.contributions")
	return s, m
}

func testRequest() Request {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return Request{
		ID:           "req-1",
		NGOID:        "ngo-1",
		Title:        "Bread",
		Location:     geo.Point{Lat: 28.61, Lng: 77.2},
		Quantity:     25,
		Unit:         "meals",
		FoodCategory: "bakery",
		Urgency:      UrgencyHigh,
		Status:       StatusPending,
		Version:      1,
		CreatedAt:    created,
		ExpiresAt:    created.Add(12 * time.Hour),
		UpdatedAt:    created,
	}
}

func TestPostgresStorage_CreateRequest(t *testing.T) {
	ctx := context.Background()
	req := testRequest()
	entry := HistoryEntry{RequestID: req.ID, Status: StatusPending, Event: "create", ChangedAt: req.CreatedAt}

	t.Run("successful creation", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ db.Tx, r *repository.Request) error {
				assert.Equal(t, req.ID, r.ID)
				assert.Equal(t, req.Location.Lat, r.Lat)
				assert.Equal(t, req.Location.Lng, r.Lng)
				assert.Equal(t, "high", r.Urgency)
				assert.Equal(t, "pending", r.Status)
				return nil
			})
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ db.Tx, h *repository.HistoryEntry) error {
				assert.Equal(t, req.ID, h.RequestID)
				assert.Equal(t, "create", h.Event)
				assert.Equal(t, entry.ChangedAt, h.ChangedAt)
				return nil
			})
		m.tx.EXPECT().Commit(ctx).Return(nil)

		assert.NoError(t, s.CreateRequest(ctx, req, entry))
	})

	t.Run("transaction begin error", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(nil, errors.New("db error"))

		err := s.CreateRequest(ctx, req, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})

	t.Run("duplicate id", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(repository.ErrDuplicateKey)
		m.tx.EXPECT().Rollback(ctx).Return(nil)

		err := s.CreateRequest(ctx, req, entry)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("history entry creation error", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(errors.New("history repository error"))
		m.tx.EXPECT().Rollback(ctx).Return(nil)

		err := s.CreateRequest(ctx, req, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to add request history entry")
	})

	t.Run("commit error", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.tx.EXPECT().Commit(ctx).Return(errors.New("commit error"))

		err := s.CreateRequest(ctx, req, entry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})
}

func TestPostgresStorage_GetRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		s, m := newTestStorage(t)
		want := testRequest()

		m.requests.EXPECT().GetByID(ctx, want.ID).Return(toRequestRow(want), nil)

		got, err := s.GetRequest(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	})

	t.Run("not found", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.requests.EXPECT().GetByID(ctx, "missing").Return(nil, repository.ErrObjectNotFound)

		_, err := s.GetRequest(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresStorage_UpdateRequest(t *testing.T) {
	ctx := context.Background()
	req := testRequest()
	req.Status = StatusCompleted
	req.MatchedDonorID = "donor-1"
	req.MatchedVolunteerID = "vol-1"
	req.ProofRef = "photo-1"
	req.Version = 6
	entry := HistoryEntry{RequestID: req.ID, Status: StatusCompleted, Event: "complete", ChangedAt: req.UpdatedAt}

	t.Run("completion writes contributions and outbox tasks", func(t *testing.T) {
		s, m := newTestStorage(t)
		events := []ContributionEvent{
			{ID: "ev-d", RequestID: req.ID, UserID: "donor-1", Role: RoleDonor, Meals: 25, Timestamp: req.UpdatedAt},
			{ID: "ev-v", RequestID: req.ID, UserID: "vol-1", Role: RoleVolunteer, Meals: 25, Timestamp: req.UpdatedAt},
		}

		var keys []string
		gomock.InOrder(
			m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil),
			m.requests.EXPECT().UpdateTx(ctx, m.tx, gomock.Any(), 5).Return(nil),
			m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil),
		)
		m.contributions.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil).Times(2)
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ db.Tx, task *repository.OutboxTask) error {
				assert.Equal(t, "smartplate.contributions", task.Topic)
				var payload repository.ContributionPayload
				require.NoError(t, json.Unmarshal(task.Payload, &payload))
				assert.Equal(t, task.Key, payload.UserID)
				assert.Equal(t, 25.0, payload.Meals)
				keys = append(keys, task.Key)
				return nil
			}).Times(2)
		m.tx.EXPECT().Commit(ctx).Return(nil)

		assert.NoError(t, s.UpdateRequest(ctx, req, 5, entry, events))
		assert.Equal(t, []string{"donor-1", "vol-1"}, keys)
	})

	t.Run("stale version", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().UpdateTx(ctx, m.tx, gomock.Any(), 5).Return(repository.ErrVersionConflict)
		m.tx.EXPECT().Rollback(ctx).Return(nil)

		err := s.UpdateRequest(ctx, req, 5, entry, nil)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
	})

	t.Run("outbox error rolls back", func(t *testing.T) {
		s, m := newTestStorage(t)
		events := []ContributionEvent{{ID: "ev-d", UserID: "donor-1", Role: RoleDonor, Meals: 25}}

		m.db.EXPECT().BeginTx(ctx).Return(m.tx, nil)
		m.requests.EXPECT().UpdateTx(ctx, m.tx, gomock.Any(), 5).Return(nil)
		m.history.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.contributions.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(nil)
		m.outbox.EXPECT().CreateTx(ctx, m.tx, gomock.Any()).Return(errors.New("outbox error"))
		m.tx.EXPECT().Rollback(ctx).Return(nil)

		err := s.UpdateRequest(ctx, req, 5, entry, events)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to add outbox task")
	})
}

func TestPostgresStorage_ListOpenRequests(t *testing.T) {
	ctx := context.Background()
	s, m := newTestStorage(t)
	open := testRequest()

	m.requests.EXPECT().ListOpen(ctx).Return([]*repository.Request{toRequestRow(open)}, nil)

	got, err := s.ListOpenRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Request{open}, got)
}

func TestPostgresStorage_Directory(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)

	t.Run("candidates round trip through rows", func(t *testing.T) {
		s, m := newTestStorage(t)
		c := Candidate{ID: "vol-1", Role: RoleVolunteer, Location: geo.Point{Lat: 1, Lng: 2}, Capacity: 10, Available: true, UpdatedAt: updated}

		var stored *repository.Candidate
		m.candidates.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, row *repository.Candidate) error {
				stored = row
				return nil
			})
		require.NoError(t, s.UpsertCandidate(ctx, c))

		m.candidates.EXPECT().List(ctx).Return([]*repository.Candidate{stored}, nil)
		got, err := s.ListCandidates(ctx)
		require.NoError(t, err)
		assert.Equal(t, []Candidate{c}, got)
	})

	t.Run("unknown ngo", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.ngos.EXPECT().GetByID(ctx, "ngo-x").Return(nil, repository.ErrObjectNotFound)

		_, err := s.GetNGO(ctx, "ngo-x")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("contributions", func(t *testing.T) {
		s, m := newTestStorage(t)

		m.contributions.EXPECT().List(ctx).Return([]*repository.Contribution{
			{ID: "ev-1", RequestID: "req-1", UserID: "donor-1", Role: "donor", Meals: 12, CreatedAt: updated},
		}, nil)

		got, err := s.ListContributions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []ContributionEvent{
			{ID: "ev-1", RequestID: "req-1", UserID: "donor-1", Role: RoleDonor, Meals: 12, Timestamp: updated},
		}, got)
	})
}
