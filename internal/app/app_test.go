package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/godilite/survey-insights/internal/config"
	"github.com/godilite/survey-insights/internal/service"
	"github.com/godilite/survey-insights/internal/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCSV = `timestamp,department,position,years_of_service,satisfaction_compensation_pay_1,expectation_compensation_pay_1,satisfaction_overall_recommend_1
2025-03-01 09:00:00,Sales,Manager,4,2,5,9
2025-03-02 09:00:00,Sales,Staff,0.5,4,5,3
2025-03-03 09:00:00,Eng,Staff,12,5,4,10
`

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:          "test",
		DBDriver:        "sqlite3",
		DBPath:          ":memory:",
		CacheTTL:        time.Minute,
		RefreshSchedule: "@every 1h",
	}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestImportAndReport(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)

	n, err := a.ImportCSV(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	d, err := a.Views().Dashboard(ctx, service.Query{})
	require.NoError(t, err)
	a.Views().Wait()

	assert.Equal(t, 3, d.Respondents)
	require.Len(t, d.Questions, 1)
	assert.InDelta(t, 1.0, d.Questions[0].Gap, 1e-9)
	require.NotNil(t, d.NPS)
	assert.InDelta(t, 33.333, d.NPS.Score, 0.001)

	sales, err := a.Views().Dashboard(ctx, service.Query{Departments: []string{"Sales"}})
	require.NoError(t, err)
	a.Views().Wait()
	assert.Equal(t, 2, sales.Respondents)
}

func TestImportRejectsMalformedFile(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)

	_, err := a.ImportCSV(ctx, strings.NewReader("satisfaction_compensation_pay_1\n3\n7\n"))

	var verr *survey.ValidationError
	require.True(t, errors.As(err, &verr))
	_, err = a.Service().BuildDashboard(ctx, service.Query{})
	assert.ErrorIs(t, err, service.ErrNoResponses, "nothing stored")
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	_, err := a.ImportCSV(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := a.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	other := newTestApp(t, nil)
	imported, err := other.ImportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)
}

func TestRefreshWritesMetrics(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "survey.prom")
	a := newTestApp(t, func(c *config.Config) { c.MetricsFile = path })

	require.NoError(t, a.Refresh(ctx), "an empty store is not an error")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "survey_insights_respondents 0")

	_, err = a.ImportCSV(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, a.Refresh(ctx))
	a.Views().Wait()

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "survey_insights_respondents 3")
	assert.Contains(t, string(data), `survey_insights_refresh_total{outcome="empty"}`)
}

func TestCSVDriver(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "responses.csv")
	a := newTestApp(t, func(c *config.Config) {
		c.DBDriver = DriverCSV
		c.DBPath = path
	})

	_, err := a.ImportCSV(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	d, err := a.Service().BuildDashboard(ctx, service.Query{Start: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Respondents)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestStoresAgreeOnUndatedResponses(t *testing.T) {
	ctx := context.Background()
	pay := survey.Key{Section: "compensation", Category: "pay", Index: 1}
	drivers := map[string]func(*config.Config){
		"sqlite": nil,
		"csv": func(c *config.Config) {
			c.DBDriver = DriverCSV
			c.DBPath = filepath.Join(t.TempDir(), "responses.csv")
		},
	}

	for name, mutate := range drivers {
		t.Run(name, func(t *testing.T) {
			a := newTestApp(t, mutate)
			undated, err := survey.NewBuilder().WithID("undated").
				Rate(survey.KindSatisfaction, pay, 2).
				Build(a.Catalog())
			require.NoError(t, err)
			dated, err := survey.NewBuilder().WithID("dated").
				At(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)).
				Rate(survey.KindSatisfaction, pay, 4).
				Build(a.Catalog())
			require.NoError(t, err)
			require.NoError(t, a.Submit(ctx, undated))
			require.NoError(t, a.Submit(ctx, dated))

			all, err := a.Service().Snapshot(ctx, service.Query{})
			require.NoError(t, err)
			assert.Len(t, all, 2)

			window, err := a.Service().Snapshot(ctx, service.Query{End: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, "dated", window[0].ID())
		})
	}
}

func TestSubmitDuplicate(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, nil)
	rec, err := survey.NewBuilder().WithID("r-1").
		Rate(survey.KindSatisfaction, survey.Key{Section: "compensation", Category: "pay", Index: 1}, 3).
		Build(a.Catalog())
	require.NoError(t, err)

	require.NoError(t, a.Submit(ctx, rec))
	assert.ErrorIs(t, a.Submit(ctx, rec), service.ErrStorageFailure)
}

func TestNewAppFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing catalog file", func(t *testing.T) {
		cfg := &config.Config{DBDriver: "sqlite3", DBPath: ":memory:", CatalogPath: filepath.Join(t.TempDir(), "nope.yaml")}

		_, err := NewApp(ctx, cfg, zap.NewNop())

		assert.ErrorContains(t, err, "catalog init failed")
	})

	t.Run("unreachable cache", func(t *testing.T) {
		cfg := &config.Config{DBDriver: "sqlite3", DBPath: ":memory:", RedisAddr: "127.0.0.1:1"}

		_, err := NewApp(ctx, cfg, zap.NewNop())

		assert.ErrorContains(t, err, "cache init failed")
	})
}

func TestRunStopsOnContext(t *testing.T) {
	a := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.RefreshSchedule = "whenever" })

	assert.Error(t, a.Run(context.Background()))
}
