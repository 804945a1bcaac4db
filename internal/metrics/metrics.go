package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels dashboard refreshes that produced a dashboard.
	OutcomeSuccess = "success"
	// OutcomeEmpty labels refreshes that found no responses.
	OutcomeEmpty = "empty"
	// OutcomeError labels failed refreshes.
	OutcomeError = "error"
)

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "survey_insights",
			Name:      "refresh_total",
			Help:      "Total number of dashboard refreshes, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	refreshDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "survey_insights",
			Name:      "refresh_seconds",
			Help:      "Dashboard refresh latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	respondents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "survey_insights",
			Name:      "respondents",
			Help:      "Respondents in the last refreshed dashboard.",
		},
	)

	validationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "survey_insights",
			Name:      "validation_failures_total",
			Help:      "Responses rejected by catalog validation.",
		},
	)
)

// Register attaches the collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		refreshTotal,
		refreshDurationSeconds,
		respondents,
		validationFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRefresh records a refresh duration and outcome label. Unknown
// outcomes count as errors.
func ObserveRefresh(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeSuccess && label != OutcomeEmpty {
		label = OutcomeError
	}
	refreshTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	refreshDurationSeconds.Observe(duration.Seconds())
}

func SetRespondents(n int) {
	respondents.Set(float64(n))
}

func IncValidationFailures() {
	validationFailuresTotal.Inc()
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node exporter textfile collector. The file is replaced
// atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
