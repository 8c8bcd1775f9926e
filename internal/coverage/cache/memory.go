package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type entry struct {
	raw       []byte
	expiresAt time.Time
}

// InMemory is the single-process counterpart of Redis.
type InMemory struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	generation int64
	entries    map[string]entry
}

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (c *InMemory) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

// Invalidate starts a new generation and drops every stored entry.
func (c *InMemory) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	clear(c.entries)
	return nil
}

func (c *InMemory) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key and sweeps entries that have already expired, so
// keys of scopes nobody asks for again do not accumulate.
func (c *InMemory) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = entry{raw: raw, expiresAt: now.Add(c.ttl)}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *InMemory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
