package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/metrics"
	"github.com/smartplate/redistribution/internal/storage"
)

type RequestRepository interface {
	ListOpenRequests(ctx context.Context) ([]storage.Request, error)
}

// RequestCache keeps the open (non-terminal) requests so the expiry sweep
// does not need to scan storage on every tick.
type RequestCache struct {
	mu     sync.RWMutex
	cache  map[string]storage.Request
	repo   RequestRepository
	logger *zap.Logger
}

func NewRequestCache(repo RequestRepository, logger *zap.Logger) *RequestCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestCache{
		cache:  make(map[string]storage.Request),
		repo:   repo,
		logger: logger.With(zap.String("component", "request_cache")),
	}
}

func (c *RequestCache) LoadInitialData(ctx context.Context) error {
	c.logger.Info("Loading open requests into cache")
	requests, err := c.repo.ListOpenRequests(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range requests {
		if req.Status.Terminal() {
			continue
		}
		c.cache[req.ID] = req
	}
	metrics.ActiveRequestCacheItems.Set(float64(len(c.cache)))
	c.logger.Info("Open requests loaded", zap.Int("count", len(c.cache)))
	return nil
}

func (c *RequestCache) Get(id string) (storage.Request, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, found := c.cache[id]
	return req, found
}

// Set stores req, or evicts it once it reaches a terminal status.
func (c *RequestCache) Set(req storage.Request) {
	if req.Status.Terminal() {
		c.Delete(req.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[req.ID] = req
	metrics.ActiveRequestCacheItems.Set(float64(len(c.cache)))
	c.logger.Debug("Cache: set request", zap.String("request_id", req.ID), zap.String("status", string(req.Status)))
}

func (c *RequestCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, found := c.cache[id]; found {
		delete(c.cache, id)
		metrics.ActiveRequestCacheItems.Set(float64(len(c.cache)))
		c.logger.Debug("Cache: deleted request", zap.String("request_id", id))
	}
}

// DueBefore returns the ids of cached requests whose expiry is before now,
// soonest first.
func (c *RequestCache) DueBefore(now time.Time) []string {
	c.mu.RLock()
	due := make([]storage.Request, 0)
	for _, req := range c.cache {
		if now.After(req.ExpiresAt) {
			due = append(due, req)
		}
	}
	c.mu.RUnlock()

	sort.Slice(due, func(i, j int) bool {
		if !due[i].ExpiresAt.Equal(due[j].ExpiresAt) {
			return due[i].ExpiresAt.Before(due[j].ExpiresAt)
		}
		return due[i].ID < due[j].ID
	})

	ids := make([]string, len(due))
	for i, req := range due {
		ids[i] = req.ID
	}
	return ids
}

func (c *RequestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
