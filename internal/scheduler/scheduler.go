package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrStopped        = errors.New("scheduler stopped")
)

// RefreshFunc recomputes whatever the scheduler keeps fresh.
type RefreshFunc func(ctx context.Context) error

// Scheduler runs a refresh once at start and then on a cron schedule. Runs
// never overlap: a tick that fires while the previous run is still going is
// skipped. A stopped scheduler cannot be restarted.
type Scheduler struct {
	refresh RefreshFunc
	spec    string
	cron    *cron.Cron
	logger  *zap.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 5m") and returns a stopped scheduler.
func New(refresh RefreshFunc, spec string, logger *zap.Logger) (*Scheduler, error) {
	if refresh == nil {
		panic("nil RefreshFunc provided to scheduler.New")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scheduler")

	cronLog := cronLogger{logger: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		refresh: refresh,
		spec:    spec,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start schedules the refresh and triggers the first run without waiting
// for it.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.cron.Start()
	s.started = true

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.run()
	}()

	s.logger.Info("scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop cancels the running refresh and waits for it to return, or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	s.stopped = true

	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if !s.running.TryLock() {
		s.logger.Debug("refresh still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	started := time.Now()
	if err := s.refresh(s.ctx); err != nil {
		s.logger.Warn("refresh failed", zap.Duration("took", time.Since(started)), zap.Error(err))
		return
	}
	s.logger.Debug("refresh completed", zap.Duration("took", time.Since(started)))
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
