package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/godilite/survey-insights/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
	maxJitter           = 15 * time.Second
)

// readThrough bundles what every cached lookup needs. Background writes are
// tracked on wg so shutdown can wait for them.
type readThrough struct {
	cache  Cacher
	sf     *singleflight.Group
	wg     *sync.WaitGroup
	ttl    time.Duration
	logger *zap.Logger
}

// jitterTTL spreads expirations by up to ±15s, or ±10% for short TTLs.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	spread := min(maxJitter, ttl/10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(int64(2*spread))) - spread
}

func (rt readThrough) store(key string, value any, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttl := jitterTTL(rt.ttl)
	if err := rt.cache.Set(ctx, key, value, ttl); err != nil {
		rt.logger.Warn("cache write failed",
			zap.String("key", key),
			zap.String("reason", reason),
			zap.Error(err))
		return
	}
	rt.logger.Debug("cache written",
		zap.String("key", key),
		zap.String("reason", reason),
		zap.Duration("ttl", ttl))
}

func (rt readThrough) spawn(fn func()) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		fn()
	}()
}

// refreshAhead recomputes a key that was just served from cache so the next
// reader sees fresh data. Concurrent refreshes of one key collapse.
func refreshAhead[T any](rt readThrough, key string, fn FetchFunc[T]) {
	rt.spawn(func() {
		_, _, _ = rt.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				rt.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			rt.store(key, value, "refresh")
			return value, nil
		})
	})
}

// FindAndCache serves key from cache when present and otherwise computes it
// once for all concurrent callers, caching the result in the background.
// Cache errors are treated as misses.
func FindAndCache[T any](ctx context.Context, rt readThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T
	if rt.logger == nil {
		rt.logger = zap.NewNop()
	}

	var cached T
	err := rt.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		rt.logger.Debug("cache hit", zap.String("key", key))
		refreshAhead(rt, key, fn)
		return cached, nil
	case cache.IsMiss(err):
		rt.logger.Debug("cache miss", zap.String("key", key))
	default:
		rt.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := rt.sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		rt.spawn(func() { rt.store(key, value, "miss") })
		return value, nil
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			rt.logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
		}
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		rt.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		rt.logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}

// noopCache is used when no cache is configured. Every read misses.
type noopCache struct{}

func (noopCache) Get(context.Context, string, any) error { return cache.ErrMiss }

func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }

func (noopCache) DeletePrefix(context.Context, string) (int64, error) { return 0, nil }

func (noopCache) Close() error { return nil }
