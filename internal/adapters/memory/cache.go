// Package memory is an in-process implementation of domain.Cache, used when no
// Redis address is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ratings_dashboard/internal/adapters/observability"
)

type entry struct {
	b   []byte
	exp time.Time // zero: no expiry
}

// Cache keeps JSON-encoded values so callers never share memory with the cache.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func New() *Cache {
	return &Cache{items: make(map[string]entry), now: time.Now}
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && !e.exp.IsZero() && !c.now().Before(e.exp) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	if err := json.Unmarshal(e.b, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	observability.ObserveCache("memory", "hit")
	return true, nil
}

// Set stores v under key. ttlSec <= 0 keeps the entry until deleted.
func (c *Cache) Set(_ context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	e := entry{b: b}
	if ttlSec > 0 {
		e.exp = c.now().Add(time.Duration(ttlSec) * time.Second)
	}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	observability.ObserveCache("memory", "del")
	return nil
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.items {
		if e.exp.IsZero() || c.now().Before(e.exp) {
			n++
		}
	}
	return n
}
