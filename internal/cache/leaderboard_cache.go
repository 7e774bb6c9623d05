package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/leaderboard"
	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/storage"
)

const leaderboardKeyPrefix = "smartplate:leaderboard:"

type LeaderboardSource interface {
	Ranked(role storage.Role) []leaderboard.Entry
	Impact() leaderboard.Impact
}

// LeaderboardCache is a read-through Redis view of the ranked standings.
// Redis failures fall back to the in-memory source.
type LeaderboardCache struct {
	client *redis.Client
	source LeaderboardSource
	ttl    time.Duration
	logger *zap.Logger
}

func NewLeaderboardCache(client *redis.Client, source LeaderboardSource, ttl time.Duration, logger *zap.Logger) *LeaderboardCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "leaderboard_cache")),
	}
}

func leaderboardKey(role storage.Role) string {
	if role == "" {
		return leaderboardKeyPrefix + "all"
	}
	return leaderboardKeyPrefix + string(role)
}

// Standings returns the ranked entries for role, or for every role when role
// is empty.
func (c *LeaderboardCache) Standings(ctx context.Context, role storage.Role) ([]leaderboard.Entry, error) {
	key := leaderboardKey(role)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entries []leaderboard.Entry
		if err := json.Unmarshal(raw, &entries); err == nil {
			c.logger.Debug("Cache: leaderboard hit", zap.String("key", key))
			return entries, nil
		}
		c.logger.Warn("Cache: discarding malformed leaderboard entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		metrics.OperationErrorsTotal.WithLabelValues("leaderboard_cache_get").Inc()
		c.logger.Warn("Cache: redis get failed, using in-memory leaderboard", zap.String("key", key), zap.Error(err))
		return c.source.Ranked(role), nil
	}

	entries := c.source.Ranked(role)
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("leaderboard_cache_set").Inc()
		c.logger.Warn("Cache: redis set failed", zap.String("key", key), zap.Error(err))
	}
	return entries, nil
}

// Impact is computed from the source on every call.
func (c *LeaderboardCache) Impact() leaderboard.Impact {
	return c.source.Impact()
}

// Invalidate drops every cached role view.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	keys := []string{leaderboardKey("")}
	for _, role := range []storage.Role{storage.RoleDonor, storage.RoleVolunteer, storage.RoleNGO, storage.RoleAdmin} {
		keys = append(keys, leaderboardKey(role))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard cache: %w", err)
	}
	return nil
}

// Handle invalidates the cache after a contribution has been aggregated.
func (c *LeaderboardCache) Handle(ctx context.Context, _ storage.ContributionEvent) error {
	return c.Invalidate(ctx)
}

func (c *LeaderboardCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}
