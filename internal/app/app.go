package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/godilite/survey-insights/internal/config"
	"github.com/godilite/survey-insights/internal/dashboard"
	"github.com/godilite/survey-insights/internal/metrics"
	"github.com/godilite/survey-insights/internal/repository"
	"github.com/godilite/survey-insights/internal/scheduler"
	"github.com/godilite/survey-insights/internal/service"
	"github.com/godilite/survey-insights/internal/survey"
	"github.com/godilite/survey-insights/internal/tabular"
	"github.com/godilite/survey-insights/pkg/cache"
	dbbuilder "github.com/godilite/survey-insights/pkg/database"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DriverCSV stores responses in a CSV file instead of a database.
const DriverCSV = "csv"

type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	catalog  *survey.Catalog
	dbPool   *sql.DB
	store    service.ResponseStore
	service  *service.DashboardService
	views    *dashboard.Views
	registry *prometheus.Registry
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	catalog, err := survey.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog init failed: %w", err)
	}
	logger.Info("Catalog loaded", zap.Int("questions", catalog.Len()), zap.String("path", cfg.CatalogPath))

	a := &App{cfg: cfg, logger: logger, catalog: catalog}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var cacher dashboard.Cacher
	if cfg.CacheEnabled() {
		cacheClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithDB(cfg.RedisDB),
		)
		if err != nil {
			a.closeStore()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
		cacher = cacheClient
	} else {
		logger.Info("Cache disabled")
	}

	a.service = service.NewDashboardService(a.store, catalog, logger)
	a.views = dashboard.NewViews(a.service, cacher, logger, cfg.CacheTTL)

	a.registry = prometheus.NewRegistry()
	if err := metrics.Register(a.registry); err != nil {
		a.Close()
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.cfg.DBDriver == DriverCSV {
		store, err := tabular.NewFileStore(a.cfg.DBPath, a.catalog)
		if err != nil {
			return fmt.Errorf("csv store init failed: %w", err)
		}
		a.store = store
		a.logger.Info("CSV store initialized", zap.String("path", a.cfg.DBPath))
		return nil
	}

	if a.cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
	}
	dbPool, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver(a.cfg.DBDriver),
		dbbuilder.WithDataSource(a.cfg.DBPath),
		dbbuilder.WithMaxOpenConns(1),
		dbbuilder.WithConnMaxLifetime(0),
		dbbuilder.WithConnMaxIdleTime(0),
		dbbuilder.WithInitStatements(repository.Schema...),
	)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	a.logger.Info("Database pool initialized", zap.String("path", a.cfg.DBPath))
	a.dbPool = dbPool
	a.store = repository.NewResponseRepository(dbPool)
	return nil
}

func (a *App) Catalog() *survey.Catalog {
	return a.catalog
}

func (a *App) Service() *service.DashboardService {
	return a.service
}

func (a *App) Views() *dashboard.Views {
	return a.views
}

// Gatherer exposes the application's metrics.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.registry
}

// ImportCSV decodes r, stores every record and drops cached dashboards. A
// malformed file stores nothing; a storage failure stops the import and
// reports how many records were stored before it.
func (a *App) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	records, err := tabular.Decode(r, a.catalog)
	if err != nil {
		var verr *survey.ValidationError
		if errors.As(err, &verr) {
			metrics.IncValidationFailures()
		}
		return 0, fmt.Errorf("decode: %w", err)
	}

	stored := 0
	for _, rec := range records {
		if err := a.service.Submit(ctx, rec); err != nil {
			a.invalidate(ctx, stored)
			return stored, fmt.Errorf("store %s: %w", rec.ID(), err)
		}
		stored++
	}
	a.invalidate(ctx, stored)
	a.logger.Info("import completed", zap.Int("records", stored))
	return stored, nil
}

// Submit stores one record and drops cached dashboards.
func (a *App) Submit(ctx context.Context, rec survey.Record) error {
	if err := a.service.Submit(ctx, rec); err != nil {
		var verr *survey.ValidationError
		if errors.As(err, &verr) {
			metrics.IncValidationFailures()
		}
		return err
	}
	a.invalidate(ctx, 1)
	return nil
}

func (a *App) invalidate(ctx context.Context, stored int) {
	if stored == 0 {
		return
	}
	if err := a.views.Invalidate(ctx); err != nil {
		a.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

// ExportCSV writes every stored record in the column convention.
func (a *App) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := a.service.Snapshot(ctx, service.Query{})
	if err != nil {
		return 0, err
	}
	if err := tabular.Encode(w, a.catalog, records); err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	return len(records), nil
}

// Refresh rebuilds the unfiltered dashboard, records the outcome and writes
// the metrics textfile when one is configured.
func (a *App) Refresh(ctx context.Context) error {
	started := time.Now()
	d, err := a.views.Dashboard(ctx, service.Query{})

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
		metrics.SetRespondents(d.Respondents)
	case dashboard.KindOf(err) == dashboard.KindNotFound:
		outcome = metrics.OutcomeEmpty
		metrics.SetRespondents(0)
		err = nil
	default:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRefresh(time.Since(started), outcome)

	if a.cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(a.cfg.MetricsFile, a.registry); werr != nil {
			a.logger.Warn("metrics export failed", zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}
	a.logger.Info("dashboard refreshed",
		zap.String("outcome", outcome),
		zap.Int("respondents", d.Respondents),
		zap.Duration("took", time.Since(started)))
	return nil
}

// Run refreshes the dashboard on the configured schedule and blocks until a
// shutdown signal is received or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting")

	sched, err := scheduler.New(a.Refresh, a.cfg.RefreshSchedule, a.logger)
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.logger.Info("application shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler shutdown error", zap.Error(err))
	}
	a.Close()

	select {
	case <-stopCtx.Done():
		if stopCtx.Err() == context.DeadlineExceeded {
			a.logger.Warn("shutdown completed but deadline exceeded")
		}
	default:
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return nil
}

// Close releases the cache and the database.
func (a *App) Close() {
	if a.views != nil {
		if err := a.views.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	a.closeStore()
}

func (a *App) closeStore() {
	if a.dbPool == nil {
		return
	}
	if err := a.dbPool.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
	a.dbPool = nil
}
