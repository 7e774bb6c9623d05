package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplate/redistribution/internal/storage"
)

type stubRequestRepo struct {
	requests []storage.Request
	err      error
}

func (r stubRequestRepo) ListOpenRequests(context.Context) ([]storage.Request, error) {
	return r.requests, r.err
}

func TestRequestCache_LoadInitialData(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := stubRequestRepo{requests: []storage.Request{
		{ID: "open", Status: storage.StatusApproved, ExpiresAt: now},
		{ID: "done", Status: storage.StatusCompleted, ExpiresAt: now},
	}}

	c := NewRequestCache(repo, nil)
	require.NoError(t, c.LoadInitialData(context.Background()))
	assert.Equal(t, 1, c.Len())

	_, found := c.Get("done")
	assert.False(t, found)
}

func TestRequestCache_LoadInitialDataError(t *testing.T) {
	c := NewRequestCache(stubRequestRepo{err: errors.New("db down")}, nil)
	assert.Error(t, c.LoadInitialData(context.Background()))
}

func TestRequestCache_SetEvictsTerminal(t *testing.T) {
	c := NewRequestCache(stubRequestRepo{}, nil)

	c.Set(storage.Request{ID: "r1", Status: storage.StatusPending})
	_, found := c.Get("r1")
	assert.True(t, found)

	c.Set(storage.Request{ID: "r1", Status: storage.StatusExpired})
	_, found = c.Get("r1")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestRequestCache_DueBefore(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewRequestCache(stubRequestRepo{}, nil)

	c.Set(storage.Request{ID: "b", Status: storage.StatusPending, ExpiresAt: now.Add(-time.Hour)})
	c.Set(storage.Request{ID: "a", Status: storage.StatusMatched, ExpiresAt: now.Add(-time.Hour)})
	c.Set(storage.Request{ID: "c", Status: storage.StatusApproved, ExpiresAt: now.Add(-2 * time.Hour)})
	c.Set(storage.Request{ID: "future", Status: storage.StatusPending, ExpiresAt: now.Add(time.Hour)})
	c.Set(storage.Request{ID: "boundary", Status: storage.StatusPending, ExpiresAt: now})

	assert.Equal(t, []string{"c", "a", "b"}, c.DueBefore(now))
}
