package mocks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/godilite/survey-insights/pkg/cache"
)

// MemoryCache is an in-process stand-in for the redis cache. Values go
// through JSON like they do in redis.
type MemoryCache struct {
	mu       sync.Mutex
	data     map[string]entry
	GetCalls int
	SetCalls int
}

type entry struct {
	value  []byte
	expiry time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]entry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++
	e, ok := c.data[key]
	if !ok || time.Now().After(e.expiry) {
		return cache.ErrMiss
	}
	return json.Unmarshal(e.value, dest)
}

func (c *MemoryCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++
	c.data[key] = entry{value: data, expiry: time.Now().Add(exp)}
	return nil
}

func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *MemoryCache) Close() error {
	return nil
}

// Keys returns the number of stored keys.
func (c *MemoryCache) Keys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Counts returns the Get and Set call counts.
func (c *MemoryCache) Counts() (gets, sets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GetCalls, c.SetCalls
}
