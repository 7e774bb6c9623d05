package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/cache"
	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/scoring"
	"github.com/smartplate/redistribution/internal/storage"
)

// Store is the persistence the lifecycle needs. UpdateRequest must fail with
// storage.ErrConcurrentUpdate when the stored version differs from
// expectedVersion, and must write the request, its history entry and the
// contribution events atomically.
type Store interface {
	CreateRequest(ctx context.Context, req storage.Request, entry storage.HistoryEntry) error
	GetRequest(ctx context.Context, id string) (*storage.Request, error)
	UpdateRequest(ctx context.Context, req storage.Request, expectedVersion int, entry storage.HistoryEntry, events []storage.ContributionEvent) error
	ListOpenRequests(ctx context.Context) ([]storage.Request, error)
	GetRequestHistory(ctx context.Context, id string) ([]storage.HistoryEntry, error)
	ListCandidates(ctx context.Context) ([]storage.Candidate, error)
	UpsertCandidate(ctx context.Context, c storage.Candidate) error
	GetNGO(ctx context.Context, id string) (*storage.NGO, error)
	UpsertNGO(ctx context.Context, ngo storage.NGO) error
}

// Subscriber receives contribution events after a completion is persisted.
type Subscriber func(ctx context.Context, ev storage.ContributionEvent) error

type Service struct {
	store  Store
	scorer *scoring.Scorer
	cache  *cache.RequestCache
	logger *zap.Logger

	locks *keyedMutex
	// completeMu orders completions so contribution timestamps reach
	// subscribers in the order they were taken.
	completeMu  sync.Mutex
	subMu       sync.RWMutex
	subscribers []Subscriber

	timeNow func() time.Time
}

func NewService(store Store, scorer *scoring.Scorer, requestCache *cache.RequestCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestCache == nil {
		requestCache = cache.NewRequestCache(store, logger)
	}
	return &Service{
		store:   store,
		scorer:  scorer,
		cache:   requestCache,
		logger:  logger.With(zap.String("component", "lifecycle")),
		locks:   newKeyedMutex(),
		timeNow: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Subscribe(sub Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

func (s *Service) CreateRequest(ctx context.Context, req storage.Request) (*storage.Request, error) {
	now := s.timeNow()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.Status = storage.StatusPending
	req.MatchedDonorID = ""
	req.MatchedVolunteerID = ""
	req.ProofRef = ""
	req.RejectReason = ""
	req.Version = 1
	req.UpdatedAt = now

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.scorer.Spoilage().Known(req.FoodCategory) {
		return nil, fmt.Errorf("%w: %q", scoring.ErrUnknownFoodCategory, req.FoodCategory)
	}
	if _, err := s.store.GetNGO(ctx, req.NGOID); err != nil {
		return nil, fmt.Errorf("failed to load ngo %s: %w", req.NGOID, err)
	}

	entry := historyEntry(req, EventCreate, "", "", now)
	if err := s.store.CreateRequest(ctx, req, entry); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create_request").Inc()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.cache.Set(req)
	metrics.RequestsCreatedTotal.Inc()
	s.logger.Info("request created",
		zap.String("request_id", req.ID),
		zap.String("ngo_id", req.NGOID),
		zap.String("urgency", string(req.Urgency)),
		zap.Time("expires_at", req.ExpiresAt),
	)
	return &req, nil
}

// GetRequest returns the request after applying any due expiry.
func (s *Service) GetRequest(ctx context.Context, id string) (*storage.Request, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.load(ctx, id)
}

func (s *Service) GetRequestHistory(ctx context.Context, id string) ([]storage.HistoryEntry, error) {
	if _, err := s.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.store.GetRequestHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request history: %w", err)
	}
	return history, nil
}

// ListEligibleMatches ranks the available candidates for an open request.
// An empty role returns candidates of every role. Roles whose slot is
// already filled are left out since a match for them cannot succeed.
func (s *Service) ListEligibleMatches(ctx context.Context, id string, role storage.Role) ([]storage.Match, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.Terminal() {
		return []storage.Match{}, nil
	}

	matches, err := s.rank(ctx, *req, s.timeNow())
	if err != nil {
		return nil, err
	}
	filtered := make([]storage.Match, 0, len(matches))
	for _, m := range matches {
		if role != "" && m.Role != role {
			continue
		}
		if req.SlotFilled(m.Role) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

// SubmitLifecycleEvent is the only write path for request state.
func (s *Service) SubmitLifecycleEvent(ctx context.Context, id string, event Event, payload Payload) (*storage.Request, error) {
	if _, ok := allowedFrom[event]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if event == EventComplete {
		s.completeMu.Lock()
		defer s.completeMu.Unlock()
	}

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.timeNow()
	in := Input{Event: event, Payload: payload, Now: now}

	switch event {
	case EventApprove:
		ngo, err := s.store.GetNGO(ctx, req.NGOID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load ngo %s: %w", req.NGOID, err)
		}
		in.NGOVerified = ngo != nil && ngo.Verified
	case EventMatch:
		if !req.Status.Terminal() {
			if in.Eligible, err = s.rank(ctx, *req, now); err != nil {
				return nil, err
			}
		}
	}

	next, entry, err := Apply(*req, in)
	if err != nil {
		metrics.TransitionErrorsTotal.WithLabelValues(string(event)).Inc()
		s.logger.Debug("lifecycle event rejected",
			zap.String("request_id", id),
			zap.String("event", string(event)),
			zap.String("status", string(req.Status)),
			zap.Error(err),
		)
		return nil, err
	}

	var events []storage.ContributionEvent
	if next.Status == storage.StatusCompleted {
		events = contributionEvents(next, now)
	}

	next.Version = req.Version + 1
	if err := s.store.UpdateRequest(ctx, next, req.Version, entry, events); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("update_request").Inc()
		return nil, fmt.Errorf("failed to persist %s for request %s: %w", event, id, err)
	}

	s.cache.Set(next)
	metrics.TransitionsTotal.WithLabelValues(string(event)).Inc()
	s.logger.Info("lifecycle transition",
		zap.String("request_id", id),
		zap.String("event", string(event)),
		zap.String("from", string(req.Status)),
		zap.String("to", string(next.Status)),
	)

	s.publish(ctx, events)
	return &next, nil
}

func (s *Service) UpsertCandidate(ctx context.Context, c storage.Candidate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.UpdatedAt = s.timeNow()
	if err := s.store.UpsertCandidate(ctx, c); err != nil {
		return fmt.Errorf("failed to upsert candidate: %w", err)
	}
	return nil
}

func (s *Service) UpsertNGO(ctx context.Context, ngo storage.NGO) error {
	if ngo.ID == "" {
		return fmt.Errorf("%w: ngo id is required", storage.ErrInvalidRequest)
	}
	ngo.UpdatedAt = s.timeNow()
	if err := s.store.UpsertNGO(ctx, ngo); err != nil {
		return fmt.Errorf("failed to upsert ngo: %w", err)
	}
	return nil
}

// SweepExpired expires every cached open request whose expiry has passed.
// Requests already expired are skipped, so repeated sweeps are no-ops.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	expired := 0
	for _, id := range s.cache.DueBefore(s.timeNow()) {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		changed, err := s.expireOne(ctx, id)
		if err != nil {
			metrics.OperationErrorsTotal.WithLabelValues("sweep").Inc()
			s.logger.Warn("failed to expire request", zap.String("request_id", id), zap.Error(err))
			continue
		}
		if changed {
			expired++
		}
	}
	return expired, nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	s.logger.Info("Starting expiry sweeper", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
			if n > 0 {
				s.logger.Info("expiry sweep finished", zap.Int("expired", n))
			}
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		}
	}
}

func (s *Service) expireOne(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.cache.Delete(id)
		}
		return false, err
	}
	_, changed, err := s.applyExpiry(ctx, *req)
	return changed, err
}

// load reads the request and persists a due expiry before returning it.
// Callers must hold the request lock.
func (s *Service) load(ctx context.Context, id string) (*storage.Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	next, _, err := s.applyExpiry(ctx, *req)
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) applyExpiry(ctx context.Context, req storage.Request) (storage.Request, bool, error) {
	next, entry, ok := Expire(req, s.timeNow())
	if !ok {
		if req.Status.Terminal() {
			s.cache.Delete(req.ID)
		}
		return req, false, nil
	}

	next.Version = req.Version + 1
	if err := s.store.UpdateRequest(ctx, next, req.Version, entry, nil); err != nil {
		return req, false, fmt.Errorf("failed to expire request %s: %w", req.ID, err)
	}

	s.cache.Delete(req.ID)
	metrics.RequestsExpiredTotal.Inc()
	metrics.TransitionsTotal.WithLabelValues(string(EventExpire)).Inc()
	s.logger.Info("request expired", zap.String("request_id", req.ID), zap.Time("expires_at", req.ExpiresAt))
	return next, true, nil
}

func (s *Service) rank(ctx context.Context, req storage.Request, now time.Time) ([]storage.Match, error) {
	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	matches, err := s.scorer.Rank(req, candidates, now)
	if err != nil {
		return nil, err
	}
	metrics.EligibleMatches.Observe(float64(len(matches)))
	return matches, nil
}

func (s *Service) publish(ctx context.Context, events []storage.ContributionEvent) {
	if len(events) == 0 {
		return
	}
	s.subMu.RLock()
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, ev := range events {
		for _, sub := range subs {
			if err := sub(ctx, ev); err != nil {
				metrics.OperationErrorsTotal.WithLabelValues("publish_contribution").Inc()
				s.logger.Error("contribution subscriber failed",
					zap.String("event_id", ev.ID),
					zap.String("user_id", ev.UserID),
					zap.Error(err),
				)
			}
		}
	}
}

func contributionEvents(req storage.Request, now time.Time) []storage.ContributionEvent {
	events := make([]storage.ContributionEvent, 0, 2)
	for _, c := range []struct {
		userID string
		role   storage.Role
	}{
		{req.MatchedDonorID, storage.RoleDonor},
		{req.MatchedVolunteerID, storage.RoleVolunteer},
	} {
		if c.userID == "" {
			continue
		}
		events = append(events, storage.ContributionEvent{
			ID:        uuid.New().String(),
			RequestID: req.ID,
			UserID:    c.userID,
			Role:      c.role,
			Meals:     req.Quantity,
			Timestamp: now,
		})
	}
	return events
}
