package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveRefresh(t *testing.T) {
	before := map[string]float64{
		OutcomeSuccess: testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeSuccess)),
		OutcomeEmpty:   testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeEmpty)),
		OutcomeError:   testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeError)),
	}

	ObserveRefresh(20*time.Millisecond, OutcomeSuccess)
	ObserveRefresh(time.Millisecond, OutcomeEmpty)
	ObserveRefresh(-time.Second, "timeout")

	assert.Equal(t, before[OutcomeSuccess]+1, testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, before[OutcomeEmpty]+1, testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, before[OutcomeError]+1, testutil.ToFloat64(refreshTotal.WithLabelValues(OutcomeError)))
}

func TestGaugesAndCounters(t *testing.T) {
	SetRespondents(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(respondents))

	before := testutil.ToFloat64(validationFailuresTotal)
	IncValidationFailures()
	assert.Equal(t, before+1, testutil.ToFloat64(validationFailuresTotal))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	SetRespondents(7)
	ObserveRefresh(time.Second, OutcomeSuccess)

	path := filepath.Join(t.TempDir(), "survey.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "survey_insights_respondents 7")
	assert.Contains(t, string(data), `survey_insights_refresh_total{outcome="success"}`)
	assert.Contains(t, string(data), "survey_insights_refresh_seconds_bucket")
}

func TestWriteTextfileMissingDir(t *testing.T) {
	reg := prometheus.NewRegistry()
	path := filepath.Join(t.TempDir(), "missing", "survey.prom")

	err := WriteTextfile(path, reg)

	assert.ErrorContains(t, err, "write metrics")
}
