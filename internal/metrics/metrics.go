package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels predictions that produced a response.
	OutcomeSuccess = "success"
	// OutcomeError labels failed predictions (bad input, missing artifacts, inference faults).
	OutcomeError = "error"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ai_service",
			Name:      "predictions_total",
			Help:      "Total number of prediction requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ai_service",
			Name:      "prediction_seconds",
			Help:      "Prediction latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	bundleLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ai_service",
			Name:      "bundle_loads_total",
			Help:      "Model bundle loads from disk, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches ai-service collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionDurationSeconds,
		bundleLoadsTotal,
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

// ObservePrediction records a prediction duration and outcome label.
func ObservePrediction(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionDurationSeconds.Observe(duration.Seconds())
}

// ObserveBundleLoad records a disk load of a model bundle.
func ObserveBundleLoad(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	bundleLoadsTotal.WithLabelValues(label).Inc()
}
