package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/survey-insights/internal/analytics"
	"github.com/godilite/survey-insights/internal/repository/models"
	"github.com/godilite/survey-insights/internal/survey"
	"go.uber.org/zap"
)

const (
	dbTimeout = 5 * time.Second
)

var (
	ErrNoResponses    = errors.New("no responses found")
	ErrStorageFailure = errors.New("storage failure")
)

// DefaultSegments are the breakdowns shown on the dashboard.
var DefaultSegments = []SegmentSpec{
	{Name: "department", Attribute: survey.AttrDepartment},
	{Name: "position", Attribute: survey.AttrPosition, Options: []analytics.SegmentOption{
		analytics.WithOrdering(analytics.PositionOrdering...),
	}},
	{Name: "tenure", Attribute: survey.AttrYearsOfService, Options: []analytics.SegmentOption{
		analytics.WithBucketer(analytics.TenureBucket),
		analytics.WithOrdering(analytics.TenureOrdering...),
	}},
}

// DashboardService loads response snapshots and runs the analytics over them.
type DashboardService struct {
	storage  ResponseStore
	catalog  *survey.Catalog
	logger   *zap.Logger
	segments []SegmentSpec
	timeout  time.Duration
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(storage ResponseStore, catalog *survey.Catalog, logger *zap.Logger) *DashboardService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if catalog == nil {
		panic("catalog must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &DashboardService{
		storage:  storage,
		catalog:  catalog,
		logger:   logger,
		segments: DefaultSegments,
		timeout:  dbTimeout,
		now:      time.Now,
	}
}

// WithSegments replaces the dashboard breakdowns.
func (s *DashboardService) WithSegments(specs ...SegmentSpec) *DashboardService {
	s.segments = specs
	return s
}

// WithTimeout bounds every storage call.
func (s *DashboardService) WithTimeout(d time.Duration) *DashboardService {
	if d > 0 {
		s.timeout = d
	}
	return s
}

func (s *DashboardService) Catalog() *survey.Catalog {
	return s.catalog
}

// Submit validates a record and appends it to the store.
func (s *DashboardService) Submit(ctx context.Context, rec survey.Record) error {
	if err := survey.Validate(rec, s.catalog); err != nil {
		return err
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.storage.Append(dbCtx, models.FromRecord(rec)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	s.logger.Info("response stored", zap.String("id", rec.ID()), zap.Time("submitted_at", rec.Timestamp()))
	return nil
}

// Snapshot loads and validates the records matching q. A malformed stored
// record fails the whole snapshot.
func (s *DashboardService) Snapshot(ctx context.Context, q Query) ([]survey.Record, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		rows []models.Response
		err  error
	)
	if q.Start.IsZero() && q.End.IsZero() {
		rows, err = s.storage.LoadAll(dbCtx)
	} else {
		end := q.End
		if end.IsZero() {
			end = s.now()
		}
		rows, err = s.storage.LoadBetween(dbCtx, q.Start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	records := make([]survey.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Builder().Build(s.catalog)
		if err != nil {
			s.logger.Error("stored response failed validation", zap.String("id", row.ID), zap.Error(err))
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		records = append(records, rec)
	}

	filtered := analytics.Apply(records,
		analytics.ByAttribute(survey.AttrDepartment, q.Departments...),
		analytics.ByAttribute(survey.AttrPosition, q.Positions...),
	)

	s.logger.Debug("snapshot loaded",
		zap.Int("stored", len(records)),
		zap.Int("selected", len(filtered)))
	return filtered, nil
}

// BuildDashboard computes every dashboard view from one snapshot.
func (s *DashboardService) BuildDashboard(ctx context.Context, q Query) (Dashboard, error) {
	records, err := s.Snapshot(ctx, q)
	if err != nil {
		return Dashboard{}, err
	}
	if len(records) == 0 {
		return Dashboard{}, ErrNoResponses
	}

	questions := analytics.ComputeGaps(records, s.catalog)
	categories := analytics.ComputeCategoryAverages(questions, s.catalog)

	d := Dashboard{
		GeneratedAt:        s.now().UTC(),
		Respondents:        len(records),
		Questions:          questions,
		Priorities:         analytics.RankByPriority(questions, s.catalog),
		Categories:         categories,
		CategoryPriorities: analytics.RankCategories(categories),
		Segments:           make([]SegmentBreakdown, 0, len(s.segments)),
	}

	nps, err := s.computeNPS(records)
	if err != nil {
		return Dashboard{}, err
	}
	d.NPS = nps

	for _, spec := range s.segments {
		d.Segments = append(d.Segments, SegmentBreakdown{
			Name:     spec.Name,
			Segments: analytics.SummarizeBySegment(records, s.catalog, spec.Attribute, spec.Options...),
		})
	}

	s.logger.Info("dashboard built",
		zap.Int("respondents", d.Respondents),
		zap.Int("questions", len(d.Questions)),
		zap.Int("categories", len(d.Categories)),
		zap.Bool("nps", d.NPS != nil))
	return d, nil
}

// computeNPS returns nil when the catalog has no NPS question or nobody
// answered it.
func (s *DashboardService) computeNPS(records []survey.Record) (*analytics.NPSResult, error) {
	scores, scale, err := analytics.NPSScores(records, s.catalog)
	if errors.Is(err, survey.ErrNoNPSQuestion) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nps: %w", err)
	}

	res, err := analytics.ComputeNPS(scores, scale)
	var insufficient *analytics.InsufficientDataError
	if errors.As(err, &insufficient) {
		s.logger.Info("nps skipped", zap.String("reason", insufficient.Error()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nps: %w", err)
	}
	return &res, nil
}
