package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godilite/survey-insights/internal/analytics"
	"github.com/godilite/survey-insights/internal/repository/models"
	"github.com/godilite/survey-insights/internal/service/mocks"
	"github.com/godilite/survey-insights/internal/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func sat(section, category string, index, score int) models.Rating {
	return models.Rating{Kind: "satisfaction", Section: section, Category: category, Index: index, Score: score}
}

func exp(section, category string, index, score int) models.Rating {
	return models.Rating{Kind: "expectation", Section: section, Category: category, Index: index, Score: score}
}

func sampleResponses() []models.Response {
	return []models.Response{
		{
			ID:           "r-1",
			SubmittedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			Demographics: map[string]string{"department": "Sales", "position": "Manager", "years_of_service": "4"},
			Ratings: []models.Rating{
				sat("compensation", "pay", 1, 2), exp("compensation", "pay", 1, 5),
				sat("growth", "training", 1, 4), exp("growth", "training", 1, 4),
				sat("overall", "recommend", 1, 9),
			},
		},
		{
			ID:           "r-2",
			SubmittedAt:  time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
			Demographics: map[string]string{"department": "Sales", "position": "Staff", "years_of_service": "0.5"},
			Ratings: []models.Rating{
				sat("compensation", "pay", 1, 4), exp("compensation", "pay", 1, 5),
				sat("overall", "recommend", 1, 3),
			},
		},
		{
			ID:           "r-3",
			SubmittedAt:  time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
			Demographics: map[string]string{"department": "Eng", "position": "Staff"},
			Ratings: []models.Rating{
				sat("growth", "training", 1, 5), exp("growth", "training", 1, 3),
				sat("overall", "recommend", 1, 10),
			},
		},
	}
}

func newTestService(store ResponseStore) *DashboardService {
	svc := NewDashboardService(store, survey.DefaultCatalog(), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// TestNewDashboardService tests the constructor
func TestNewDashboardService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		store := &mocks.MockResponseStore{}
		logger := zap.NewNop()

		svc := NewDashboardService(store, survey.DefaultCatalog(), logger)

		assert.NotNil(t, svc)
		assert.Equal(t, store, svc.storage)
		assert.Equal(t, logger, svc.logger)
		assert.Equal(t, dbTimeout, svc.timeout)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewDashboardService(nil, survey.DefaultCatalog(), zap.NewNop())
		})
	})

	t.Run("nil catalog panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewDashboardService(&mocks.MockResponseStore{}, nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewDashboardService(&mocks.MockResponseStore{}, survey.DefaultCatalog(), nil)
		assert.NotNil(t, svc.logger)
	})

	t.Run("non-positive timeout is ignored", func(t *testing.T) {
		svc := NewDashboardService(&mocks.MockResponseStore{}, survey.DefaultCatalog(), nil).WithTimeout(0)
		assert.Equal(t, dbTimeout, svc.timeout)
	})
}

// TestBuildDashboard tests the full analysis pass
func TestBuildDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("all views from one snapshot", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return sampleResponses(), nil
			},
		}
		svc := newTestService(store)

		d, err := svc.BuildDashboard(ctx, Query{})

		require.NoError(t, err)
		assert.Equal(t, fixedNow, d.GeneratedAt)
		assert.Equal(t, 3, d.Respondents)

		require.Len(t, d.Questions, 2)
		assert.Equal(t, "compensation", d.Questions[0].Section)
		assert.Equal(t, 3.0, d.Questions[0].MeanSatisfaction)
		assert.Equal(t, 2.0, d.Questions[0].Gap)
		assert.Equal(t, "growth", d.Questions[1].Section)
		assert.Equal(t, -1.0, d.Questions[1].Gap)

		require.Len(t, d.Priorities, 2)
		assert.Equal(t, "pay", d.Priorities[0].Category)

		require.Len(t, d.Categories, 2)
		assert.Equal(t, "pay", d.CategoryPriorities[0].Category)

		require.NotNil(t, d.NPS)
		assert.Equal(t, analytics.ScaleZeroToTen, d.NPS.Scale)
		assert.Equal(t, 2, d.NPS.Promoters)
		assert.Equal(t, 1, d.NPS.Detractors)
		assert.InDelta(t, 33.333, d.NPS.Score, 0.001)

		require.Len(t, d.Segments, 3)
		assert.Equal(t, "department", d.Segments[0].Name)
		assert.Equal(t, []analytics.SegmentSummary{
			{Attribute: "department", Value: "Eng", MeanSatisfaction: 5, Respondents: 1},
			{Attribute: "department", Value: "Sales", MeanSatisfaction: 3.5, Respondents: 2},
		}, d.Segments[0].Segments)

		position := d.Segments[1].Segments
		require.Len(t, position, 2)
		assert.Equal(t, "Staff", position[0].Value)
		assert.Equal(t, 2, position[0].Respondents)
		assert.Equal(t, "Manager", position[1].Value)

		tenure := d.Segments[2].Segments
		require.Len(t, tenure, 2)
		assert.Equal(t, "<1 year", tenure[0].Value)
		assert.Equal(t, "3-5 years", tenure[1].Value)
	})

	t.Run("filters narrow the snapshot", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return sampleResponses(), nil
			},
		}
		svc := newTestService(store)

		d, err := svc.BuildDashboard(ctx, Query{Departments: []string{"Sales"}, Positions: []string{"Staff"}})

		require.NoError(t, err)
		assert.Equal(t, 1, d.Respondents)
		require.Len(t, d.Questions, 1)
		assert.Equal(t, 1.0, d.Questions[0].Gap)
	})

	t.Run("time window uses LoadBetween", func(t *testing.T) {
		start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		store := &mocks.MockResponseStore{
			LoadBetweenFunc: func(ctx context.Context, s, e time.Time) ([]models.Response, error) {
				assert.Equal(t, start, s)
				assert.Equal(t, fixedNow, e, "open end defaults to now")
				return sampleResponses()[1:], nil
			},
		}
		svc := newTestService(store)

		d, err := svc.BuildDashboard(ctx, Query{Start: start})

		require.NoError(t, err)
		assert.Equal(t, 2, d.Respondents)
	})

	t.Run("no nps answers leaves nps empty", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return []models.Response{{
					ID:      "r-1",
					Ratings: []models.Rating{sat("compensation", "pay", 1, 3), exp("compensation", "pay", 1, 4)},
				}}, nil
			},
		}
		svc := newTestService(store)

		d, err := svc.BuildDashboard(ctx, Query{})

		require.NoError(t, err)
		assert.Nil(t, d.NPS)
		assert.Len(t, d.Questions, 1)
	})

	t.Run("no responses found", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return []models.Response{}, nil
			},
		}
		svc := newTestService(store)

		_, err := svc.BuildDashboard(ctx, Query{})

		assert.ErrorIs(t, err, ErrNoResponses)
	})

	t.Run("filters removing everything", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return sampleResponses(), nil
			},
		}
		svc := newTestService(store)

		_, err := svc.BuildDashboard(ctx, Query{Departments: []string{"Legal"}})

		assert.ErrorIs(t, err, ErrNoResponses)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return nil, errors.New("database connection failed")
			},
		}
		svc := newTestService(store)

		_, err := svc.BuildDashboard(ctx, Query{})

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("malformed stored response fails fast", func(t *testing.T) {
		rows := sampleResponses()
		rows[1].Ratings = append(rows[1].Ratings, sat("compensation", "pay", 2, 7))
		store := &mocks.MockResponseStore{
			LoadAllFunc: func(ctx context.Context) ([]models.Response, error) {
				return rows, nil
			},
		}
		svc := newTestService(store)

		_, err := svc.BuildDashboard(ctx, Query{})

		var verr *survey.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "r-2", verr.RecordID)
		assert.Equal(t, "satisfaction_compensation_pay_2", verr.Field)
		assert.ErrorIs(t, err, survey.ErrOutOfScale)
	})
}

// TestSubmit tests storing a new response
func TestSubmit(t *testing.T) {
	ctx := context.Background()
	catalog := survey.DefaultCatalog()
	pay := survey.Key{Section: "compensation", Category: "pay", Index: 1}

	rec, err := survey.NewBuilder().
		At(fixedNow).
		SetDemographic(survey.AttrDepartment, "Sales").
		Rate(survey.KindSatisfaction, pay, 3).
		Rate(survey.KindExpectation, pay, 5).
		Build(catalog)
	require.NoError(t, err)

	t.Run("stores flattened record", func(t *testing.T) {
		var stored models.Response
		store := &mocks.MockResponseStore{
			AppendFunc: func(ctx context.Context, resp models.Response) error {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				stored = resp
				return nil
			},
		}
		svc := newTestService(store)

		require.NoError(t, svc.Submit(ctx, rec))
		assert.Equal(t, rec.ID(), stored.ID)
		assert.Equal(t, fixedNow, stored.SubmittedAt)
		assert.Equal(t, []models.Rating{exp("compensation", "pay", 1, 5), sat("compensation", "pay", 1, 3)}, stored.Ratings)
	})

	t.Run("invalid record is rejected before storage", func(t *testing.T) {
		store := &mocks.MockResponseStore{}
		svc := newTestService(store)

		err := svc.Submit(ctx, survey.Record{})

		assert.ErrorIs(t, err, survey.ErrMissingID)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &mocks.MockResponseStore{
			AppendFunc: func(ctx context.Context, resp models.Response) error {
				return errors.New("readonly database")
			},
		}
		svc := newTestService(store)

		err := svc.Submit(ctx, rec)

		assert.ErrorIs(t, err, ErrStorageFailure)
	})
}

func TestResponseRoundTripThroughModels(t *testing.T) {
	catalog := survey.DefaultCatalog()
	pay := survey.Key{Section: "compensation", Category: "pay", Index: 1}
	rec, err := survey.NewBuilder().
		At(fixedNow).
		SetDemographic(survey.AttrPosition, "Director").
		Rate(survey.KindSatisfaction, pay, 2).
		Comment(pay, "frozen since 2023").
		Build(catalog)
	require.NoError(t, err)

	back, err := models.FromRecord(rec).Builder().Build(catalog)

	require.NoError(t, err)
	assert.Equal(t, rec.ID(), back.ID())
	assert.Equal(t, rec.Demographics(), back.Demographics())
	assert.Equal(t, rec.Ratings(), back.Ratings())
	assert.Equal(t, rec.Comments(), back.Comments())
}
