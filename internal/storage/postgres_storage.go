//go:generate mockgen -source ./postgres_storage.go -destination=./mocks/storage.go -package=mock_storage
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartplate/redistribution/internal/db"
	"github.com/smartplate/redistribution/internal/geo"
	"github.com/smartplate/redistribution/internal/repository"
)

type RequestRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, req *repository.Request) error
	GetByID(ctx context.Context, id string) (*repository.Request, error)
	UpdateTx(ctx context.Context, tx db.Tx, req *repository.Request, expectedVersion int) error
	ListOpen(ctx context.Context) ([]*repository.Request, error)
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error
	GetByRequestID(ctx context.Context, requestID string) ([]*repository.HistoryEntry, error)
}

type CandidateRepository interface {
	Upsert(ctx context.Context, c *repository.Candidate) error
	List(ctx context.Context) ([]*repository.Candidate, error)
}

type NGORepository interface {
	Upsert(ctx context.Context, ngo *repository.NGO) error
	GetByID(ctx context.Context, id string) (*repository.NGO, error)
}

type ContributionRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, c *repository.Contribution) error
	List(ctx context.Context) ([]*repository.Contribution, error)
}

type OperatorRepository interface {
	CreateOperator(ctx context.Context, username, password string) error
	Exists(ctx context.Context, username string) (bool, error)
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

// PostgresStorage persists requests with their history, contributions and
// outbox tasks in one transaction per change.
type PostgresStorage struct {
	db            db.DB
	requests      RequestRepository
	history       HistoryRepository
	candidates    CandidateRepository
	ngos          NGORepository
	contributions ContributionRepository
	outbox        OutboxTaskRepository
	topic         string
}

type Repositories struct {
	Requests      RequestRepository
	History       HistoryRepository
	Candidates    CandidateRepository
	NGOs          NGORepository
	Contributions ContributionRepository
	Outbox        OutboxTaskRepository
}

func NewPostgresStorage(database db.DB, repos Repositories, contributionTopic string) *PostgresStorage {
	return &PostgresStorage{
		db:            database,
		requests:      repos.Requests,
		history:       repos.History,
		candidates:    repos.Candidates,
		ngos:          repos.NGOs,
		contributions: repos.Contributions,
		outbox:        repos.Outbox,
		topic:         contributionTopic,
	}
}

func (s *PostgresStorage) inTx(ctx context.Context, fn func(tx db.Tx) error) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStorage) CreateRequest(ctx context.Context, req Request, entry HistoryEntry) error {
	return s.inTx(ctx, func(tx db.Tx) error {
		if err := s.requests.CreateTx(ctx, tx, toRequestRow(req)); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return fmt.Errorf("request %s: %w", req.ID, ErrAlreadyExists)
			}
			return fmt.Errorf("failed to add request: %w", err)
		}
		if err := s.history.CreateTx(ctx, tx, toHistoryRow(entry)); err != nil {
			return fmt.Errorf("failed to add request history entry: %w", err)
		}
		return nil
	})
}

func (s *PostgresStorage) GetRequest(ctx context.Context, id string) (*Request, error) {
	row, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	req := fromRequestRow(row)
	return &req, nil
}

// UpdateRequest writes req if the stored version still equals
// expectedVersion, together with its history entry and any contributions.
// Each contribution also becomes an outbox task.
func (s *PostgresStorage) UpdateRequest(ctx context.Context, req Request, expectedVersion int, entry HistoryEntry, events []ContributionEvent) error {
	return s.inTx(ctx, func(tx db.Tx) error {
		if err := s.requests.UpdateTx(ctx, tx, toRequestRow(req), expectedVersion); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return fmt.Errorf("request %s version %d: %w", req.ID, expectedVersion, ErrConcurrentUpdate)
			}
			return fmt.Errorf("failed to update request: %w", err)
		}
		if err := s.history.CreateTx(ctx, tx, toHistoryRow(entry)); err != nil {
			return fmt.Errorf("failed to add request history entry: %w", err)
		}

		for _, ev := range events {
			if err := s.contributions.CreateTx(ctx, tx, toContributionRow(ev)); err != nil {
				return fmt.Errorf("failed to add contribution %s: %w", ev.ID, err)
			}
			task, err := contributionTask(ev, s.topic)
			if err != nil {
				return err
			}
			if err := s.outbox.CreateTx(ctx, tx, task); err != nil {
				return fmt.Errorf("failed to add outbox task for contribution %s: %w", ev.ID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStorage) ListOpenRequests(ctx context.Context) ([]Request, error) {
	rows, err := s.requests.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	out := make([]Request, len(rows))
	for i, row := range rows {
		out[i] = fromRequestRow(row)
	}
	return out, nil
}

func (s *PostgresStorage) GetRequestHistory(ctx context.Context, id string) ([]HistoryEntry, error) {
	rows, err := s.history.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request history: %w", err)
	}
	out := make([]HistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = HistoryEntry{
			RequestID:   row.RequestID,
			Status:      Status(row.Status),
			Event:       row.Event,
			CandidateID: row.CandidateID,
			Note:        row.Note,
			ChangedAt:   row.ChangedAt.UTC(),
		}
	}
	return out, nil
}

func (s *PostgresStorage) ListCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := s.candidates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]Candidate, len(rows))
	for i, row := range rows {
		out[i] = Candidate{
			ID:            row.ID,
			Role:          Role(row.Role),
			Name:          row.Name,
			Location:      geo.Point{Lat: row.Lat, Lng: row.Lng},
			Capacity:      row.Capacity,
			MaxDistanceKm: row.MaxDistanceKm,
			Available:     row.Available,
			TrustScore:    row.TrustScore,
			UpdatedAt:     row.UpdatedAt.UTC(),
		}
	}
	return out, nil
}

func (s *PostgresStorage) UpsertCandidate(ctx context.Context, c Candidate) error {
	row := &repository.Candidate{
		ID:            c.ID,
		Role:          string(c.Role),
		Name:          c.Name,
		Lat:           c.Location.Lat,
		Lng:           c.Location.Lng,
		Capacity:      c.Capacity,
		MaxDistanceKm: c.MaxDistanceKm,
		Available:     c.Available,
		TrustScore:    c.TrustScore,
		UpdatedAt:     c.UpdatedAt,
	}
	if err := s.candidates.Upsert(ctx, row); err != nil {
		return fmt.Errorf("failed to upsert candidate: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetNGO(ctx context.Context, id string) (*NGO, error) {
	row, err := s.ngos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, fmt.Errorf("ngo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ngo: %w", err)
	}
	return &NGO{ID: row.ID, Name: row.Name, Verified: row.Verified, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (s *PostgresStorage) UpsertNGO(ctx context.Context, ngo NGO) error {
	row := &repository.NGO{ID: ngo.ID, Name: ngo.Name, Verified: ngo.Verified, UpdatedAt: ngo.UpdatedAt}
	if err := s.ngos.Upsert(ctx, row); err != nil {
		return fmt.Errorf("failed to upsert ngo: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListContributions(ctx context.Context) ([]ContributionEvent, error) {
	rows, err := s.contributions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	out := make([]ContributionEvent, len(rows))
	for i, row := range rows {
		out[i] = ContributionEvent{
			ID:        row.ID,
			RequestID: row.RequestID,
			UserID:    row.UserID,
			Role:      Role(row.Role),
			Meals:     row.Meals,
			Timestamp: row.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func toRequestRow(r Request) *repository.Request {
	return &repository.Request{
		ID:                 r.ID,
		NGOID:              r.NGOID,
		Title:              r.Title,
		Lat:                r.Location.Lat,
		Lng:                r.Location.Lng,
		Quantity:           r.Quantity,
		Unit:               r.Unit,
		FoodCategory:       r.FoodCategory,
		Urgency:            string(r.Urgency),
		Status:             string(r.Status),
		MatchedDonorID:     r.MatchedDonorID,
		MatchedVolunteerID: r.MatchedVolunteerID,
		ProofRef:           r.ProofRef,
		RejectReason:       r.RejectReason,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		ExpiresAt:          r.ExpiresAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromRequestRow(row *repository.Request) Request {
	return Request{
		ID:                 row.ID,
		NGOID:              row.NGOID,
		Title:              row.Title,
		Location:           geo.Point{Lat: row.Lat, Lng: row.Lng},
		Quantity:           row.Quantity,
		Unit:               row.Unit,
		FoodCategory:       row.FoodCategory,
		Urgency:            Urgency(row.Urgency),
		Status:             Status(row.Status),
		MatchedDonorID:     row.MatchedDonorID,
		MatchedVolunteerID: row.MatchedVolunteerID,
		ProofRef:           row.ProofRef,
		RejectReason:       row.RejectReason,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.UTC(),
		ExpiresAt:          row.ExpiresAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

func toHistoryRow(e HistoryEntry) *repository.HistoryEntry {
	return &repository.HistoryEntry{
		RequestID:   e.RequestID,
		Status:      string(e.Status),
		Event:       e.Event,
		CandidateID: e.CandidateID,
		Note:        e.Note,
		ChangedAt:   e.ChangedAt,
	}
}

func toContributionRow(ev ContributionEvent) *repository.Contribution {
	return &repository.Contribution{
		ID:        ev.ID,
		RequestID: ev.RequestID,
		UserID:    ev.UserID,
		Role:      string(ev.Role),
		Meals:     ev.Meals,
		CreatedAt: ev.Timestamp,
	}
}

func contributionTask(ev ContributionEvent, topic string) (*repository.OutboxTask, error) {
	payload, err := json.Marshal(repository.ContributionPayload{
		EventID:   ev.ID,
		RequestID: ev.RequestID,
		UserID:    ev.UserID,
		Role:      string(ev.Role),
		Meals:     ev.Meals,
		Timestamp: ev.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode contribution %s: %w", ev.ID, err)
	}
	return &repository.OutboxTask{
		Topic:   topic,
		Key:     ev.UserID,
		Payload: payload,
	}, nil
}
