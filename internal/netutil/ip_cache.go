package netutil

import (
	"context"
	"sync"
	"time"
)

// IPCache keeps the last resolved public IP for a short while so that
// back-to-back session checks do not hit the lookup service each time.
type IPCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, ip string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopIPCache struct{}

func NewNoopIPCache() *NoopIPCache { return &NoopIPCache{} }

func (NoopIPCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (NoopIPCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (NoopIPCache) Delete(context.Context, string) error                     { return nil }

type cachedIP struct {
	ip        string
	expiresAt time.Time
}

type InMemoryIPCache struct {
	mu    sync.RWMutex
	items map[string]cachedIP
	now   func() time.Time
}

func NewInMemoryIPCache() *InMemoryIPCache {
	return &InMemoryIPCache{items: make(map[string]cachedIP), now: time.Now}
}

func (c *InMemoryIPCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(item.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur == item {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return item.ip, true, nil
}

func (c *InMemoryIPCache) Set(_ context.Context, key, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cachedIP{ip: ip, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryIPCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
