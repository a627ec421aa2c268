package service

import (
	"context"
	"sync"
	"time"
)

// EntryMissCache remembers catalog ids that were looked up and not found.
type EntryMissCache interface {
	IsMissing(ctx context.Context, id string) (bool, error)
	MarkMissing(ctx context.Context, id string, ttl time.Duration) error
	Reset(ctx context.Context) error
}

type NoopEntryMissCache struct{}

func (NoopEntryMissCache) IsMissing(context.Context, string) (bool, error)           { return false, nil }
func (NoopEntryMissCache) MarkMissing(context.Context, string, time.Duration) error { return nil }
func (NoopEntryMissCache) Reset(context.Context) error                              { return nil }

type InMemoryEntryMissCache struct {
	mu      sync.RWMutex
	missing map[string]time.Time
	now     func() time.Time
}

func NewInMemoryEntryMissCache() *InMemoryEntryMissCache {
	return &InMemoryEntryMissCache{missing: make(map[string]time.Time), now: time.Now}
}

func (c *InMemoryEntryMissCache) IsMissing(_ context.Context, id string) (bool, error) {
	c.mu.RLock()
	expiresAt, ok := c.missing[id]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if c.now().After(expiresAt) {
		c.mu.Lock()
		delete(c.missing, id)
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *InMemoryEntryMissCache) MarkMissing(_ context.Context, id string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missing[id] = c.now().Add(ttl)
	return nil
}

func (c *InMemoryEntryMissCache) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.missing = make(map[string]time.Time)
	return nil
}
