package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/storage"
)

var (
	ErrOutOfOrderEvent = errors.New("contribution event is older than the user's last contribution")
	ErrInvalidEvent    = errors.New("invalid contribution event")
)

func DefaultRoleWeights() map[storage.Role]float64 {
	return map[storage.Role]float64{
		storage.RoleDonor:     1.0,
		storage.RoleVolunteer: 1.5,
		storage.RoleNGO:       0.5,
	}
}

type Config struct {
	RoleWeights map[storage.Role]float64
	Badges      []BadgeRule
}

func DefaultConfig() Config {
	return Config{
		RoleWeights: DefaultRoleWeights(),
		Badges:      DefaultBadgeRules(),
	}
}

// Entry is one user's standing. Rank is only set on entries returned by Ranked.
type Entry struct {
	Rank                int          `json:"rank"`
	UserID              string       `json:"user_id"`
	Role                storage.Role `json:"role"`
	Score               float64      `json:"score"`
	Meals               float64      `json:"meals"`
	Contributions       int          `json:"contributions"`
	Streak              int          `json:"streak"`
	Badges              int          `json:"badges"`
	FirstContributionAt time.Time    `json:"first_contribution_at"`
	LastContributionAt  time.Time    `json:"last_contribution_at"`
}

type userState struct {
	entry  Entry
	badges []storage.Badge
}

type state struct {
	users    map[string]*userState
	seen     map[string]struct{}
	requests map[string]float64
}

func newState() *state {
	return &state{
		users:    make(map[string]*userState),
		seen:     make(map[string]struct{}),
		requests: make(map[string]float64),
	}
}

// Aggregator folds contribution events into per-user scores, streaks and
// badges. It is safe for concurrent use.
type Aggregator struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.RWMutex
	state *state
}

func NewAggregator(cfg Config, logger *zap.Logger) (*Aggregator, error) {
	if len(cfg.RoleWeights) == 0 {
		cfg.RoleWeights = DefaultRoleWeights()
	}
	for role, w := range cfg.RoleWeights {
		if w < 0 {
			return nil, fmt.Errorf("role weight for %s must not be negative", role)
		}
	}
	if cfg.Badges == nil {
		cfg.Badges = DefaultBadgeRules()
	}
	rules := make([]BadgeRule, len(cfg.Badges))
	copy(rules, cfg.Badges)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Meals < rules[j].Meals })
	cfg.Badges = rules

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "leaderboard")),
		state:  newState(),
	}, nil
}

// Ingest applies one event. Events already applied (same id) are ignored.
func (a *Aggregator) Ingest(ev storage.ContributionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	applied, err := a.apply(a.state, ev)
	if err != nil {
		a.logger.Warn("contribution event rejected",
			zap.String("event_id", ev.ID),
			zap.String("user_id", ev.UserID),
			zap.Time("timestamp", ev.Timestamp),
			zap.Error(err),
		)
		return err
	}
	if applied {
		metrics.ContributionsIngestedTotal.WithLabelValues(string(ev.Role)).Inc()
	}
	return nil
}

// Handle lets the aggregator subscribe to completion events.
func (a *Aggregator) Handle(_ context.Context, ev storage.ContributionEvent) error {
	return a.Ingest(ev)
}

// Rebuild discards the current standings and replays events in timestamp
// order. On error the previous standings are kept.
func (a *Aggregator) Rebuild(events []storage.ContributionEvent) error {
	ordered := make([]storage.ContributionEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].ID < ordered[j].ID
	})

	fresh := newState()
	for _, ev := range ordered {
		if _, err := a.apply(fresh, ev); err != nil {
			return fmt.Errorf("rebuild failed at event %s: %w", ev.ID, err)
		}
	}

	a.mu.Lock()
	a.state = fresh
	a.mu.Unlock()

	a.logger.Info("leaderboard rebuilt",
		zap.Int("events", len(ordered)),
		zap.Int("users", len(fresh.users)),
	)
	return nil
}

// Ranked returns entries for role (all roles when empty) ordered by score
// descending, then earliest first contribution, then user id.
func (a *Aggregator) Ranked(role storage.Role) []Entry {
	a.mu.RLock()
	entries := make([]Entry, 0, len(a.state.users))
	for _, u := range a.state.users {
		if role != "" && u.entry.Role != role {
			continue
		}
		entries = append(entries, u.entry)
	}
	a.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].FirstContributionAt.Equal(entries[j].FirstContributionAt) {
			return entries[i].FirstContributionAt.Before(entries[j].FirstContributionAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	for idx := range entries {
		entries[idx].Rank = idx + 1
	}
	return entries
}

// Standings serves Ranked where no Redis view is configured.
func (a *Aggregator) Standings(_ context.Context, role storage.Role) ([]Entry, error) {
	return a.Ranked(role), nil
}

func (a *Aggregator) Entry(userID string) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.state.users[userID]
	if !ok {
		return Entry{}, false
	}
	return u.entry, true
}

func (a *Aggregator) Badges(userID string) []storage.Badge {
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.state.users[userID]
	if !ok {
		return []storage.Badge{}
	}
	out := make([]storage.Badge, len(u.badges))
	copy(out, u.badges)
	return out
}

// apply returns false when ev was already applied. Callers hold a.mu or own st.
func (a *Aggregator) apply(st *state, ev storage.ContributionEvent) (bool, error) {
	if ev.UserID == "" || ev.Meals < 0 || ev.Timestamp.IsZero() {
		return false, fmt.Errorf("%w: user id, timestamp and non-negative meals are required", ErrInvalidEvent)
	}
	weight, ok := a.cfg.RoleWeights[ev.Role]
	if !ok {
		return false, fmt.Errorf("%w: no weight for role %q", ErrInvalidEvent, ev.Role)
	}
	if ev.ID != "" {
		if _, dup := st.seen[ev.ID]; dup {
			return false, nil
		}
	}

	ts := ev.Timestamp.UTC()
	u, exists := st.users[ev.UserID]
	if exists && ts.Before(u.entry.LastContributionAt) {
		return false, fmt.Errorf("%w: user %s event at %s before %s",
			ErrOutOfOrderEvent, ev.UserID, ts.Format(time.RFC3339), u.entry.LastContributionAt.Format(time.RFC3339))
	}

	if !exists {
		u = &userState{entry: Entry{
			UserID:              ev.UserID,
			Role:                ev.Role,
			FirstContributionAt: ts,
			Streak:              1,
		}}
		st.users[ev.UserID] = u
	} else {
		u.entry.Streak = nextStreak(u.entry.Streak, u.entry.LastContributionAt, ts)
	}

	before := u.entry.Meals
	u.entry.Meals += ev.Meals
	u.entry.Score += ev.Meals * weight
	u.entry.Contributions++
	u.entry.LastContributionAt = ts

	u.badges = append(u.badges, awardBadges(a.cfg.Badges, ev.UserID, before, u.entry.Meals, ts)...)
	u.entry.Badges = len(u.badges)

	if ev.ID != "" {
		st.seen[ev.ID] = struct{}{}
	}
	if ev.RequestID != "" && ev.Meals > st.requests[ev.RequestID] {
		st.requests[ev.RequestID] = ev.Meals
	}
	return true, nil
}

// nextStreak compares UTC calendar days: the next day extends the streak,
// the same day keeps it, anything later restarts at one.
func nextStreak(current int, last, ts time.Time) int {
	days := int(utcDay(ts).Sub(utcDay(last)).Hours() / 24)
	switch {
	case days == 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
