package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godilite/survey-insights/internal/service"
	"github.com/godilite/survey-insights/internal/survey"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultViewTimeout   = 10 * time.Second
)

type CacheKeyType string

const (
	cacheKeyDashboard CacheKeyType = "dashboard"
)

// Views serves dashboards through a read-through cache.
type Views struct {
	service  DashboardService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	pending  sync.WaitGroup
	cacheTTL time.Duration

	// generation is part of every key; Invalidate bumps it so fetches that
	// started earlier can only write keys nobody reads any more.
	generation atomic.Uint64
}

// NewViews initializes the cached views. A nil cacher disables caching.
func NewViews(svc DashboardService, c Cacher, logger *zap.Logger, ttl time.Duration) *Views {
	if svc == nil {
		panic("nil DashboardService provided to NewViews")
	}
	if c == nil {
		c = noopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &Views{
		service:  svc,
		cache:    c,
		logger:   logger.Named("dashboard"),
		cacheTTL: ttl,
	}
}

func validateQuery(q service.Query) error {
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return &Error{Kind: KindInvalid, Message: "end date must be after start date"}
	}
	return nil
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func normalizeValues(values []string) string {
	out := slices.Clone(values)
	slices.Sort(out)
	return strings.Join(slices.Compact(out), ",")
}

// normalizeKey maps equivalent queries to one cache key: window bounds are
// the exact instants in UTC and filter values are sorted.
func normalizeKey(prefix CacheKeyType, generation uint64, q service.Query) string {
	return fmt.Sprintf("%s:g%d:%s:%s:d=%s:p=%s",
		prefix,
		generation,
		formatInstant(q.Start),
		formatInstant(q.End),
		normalizeValues(q.Departments),
		normalizeValues(q.Positions))
}

func (v *Views) describeError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		v.logger.Warn("request canceled", zap.String("op", op))
		return &Error{Kind: KindCanceled, Message: "request canceled", Err: err}
	case context.DeadlineExceeded:
		v.logger.Warn("request timeout", zap.String("op", op))
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var verr *survey.ValidationError
	switch {
	case errors.Is(err, service.ErrNoResponses):
		v.logger.Info("no responses found", zap.String("op", op))
		return &Error{Kind: KindNotFound, Message: "no responses found for the given query", Err: err}
	case errors.Is(err, service.ErrStorageFailure):
		v.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInternal, Message: "database error", Err: err}
	case errors.As(err, &verr):
		v.logger.Error("stored response is malformed", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInternal, Message: fmt.Sprintf("stored response %s is malformed", verr.RecordID), Err: err}
	default:
		v.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInternal, Message: fmt.Sprintf("%s failed: %v", op, err), Err: err}
	}
}

func (v *Views) readThrough() readThrough {
	return readThrough{
		cache:  v.cache,
		sf:     &v.sfGroup,
		wg:     &v.pending,
		ttl:    v.cacheTTL,
		logger: v.logger,
	}
}

// Dashboard returns the dashboard for q, from cache when possible.
func (v *Views) Dashboard(ctx context.Context, q service.Query) (service.Dashboard, error) {
	if err := validateQuery(q); err != nil {
		return service.Dashboard{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultViewTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyDashboard, v.generation.Load(), q)

	d, err := FindAndCache(ctx, v.readThrough(), cacheKey, func(fetchCtx context.Context) (service.Dashboard, error) {
		return v.service.BuildDashboard(fetchCtx, q)
	})
	if err != nil {
		return service.Dashboard{}, v.describeError(ctx, "Dashboard", err)
	}
	return d, nil
}

// Invalidate drops every cached dashboard. Call it after new responses are
// stored. Dashboards still being computed from older data are written under
// the previous generation and never served.
func (v *Views) Invalidate(ctx context.Context) error {
	v.generation.Add(1)
	v.pending.Wait()
	n, err := v.cache.DeletePrefix(ctx, string(cacheKeyDashboard)+":")
	if err != nil {
		return fmt.Errorf("invalidate dashboards: %w", err)
	}
	v.logger.Info("dashboards invalidated", zap.Int64("keys", n))
	return nil
}

// Wait blocks until background cache writes and refreshes have finished.
func (v *Views) Wait() {
	v.pending.Wait()
}

// Close waits for background work and closes the cache.
func (v *Views) Close() error {
	v.pending.Wait()
	return v.cache.Close()
}
