package dashboard

import (
	"context"
	"time"

	"github.com/godilite/survey-insights/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

type DashboardService interface {
	BuildDashboard(ctx context.Context, q service.Query) (service.Dashboard, error)
}
