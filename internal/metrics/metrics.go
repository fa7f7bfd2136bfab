package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// StageTraining labels baseline-building passes.
	StageTraining = "training"
	// StageDetection labels detection passes.
	StageDetection = "detection"
)

var (
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_detect",
			Name:      "records_total",
			Help:      "Total log records processed, partitioned by pass stage.",
		},
		[]string{"stage"},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_detect",
			Name:      "anomalies_total",
			Help:      "Total anomalies detected, partitioned by anomaly type.",
		},
		[]string{"type"},
	)

	trainingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_detect",
			Name:      "training_seconds",
			Help:      "Baseline training pass latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	detectionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_detect",
			Name:      "detection_seconds",
			Help:      "Detection pass latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	baselineTemplates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mirador_detect",
			Name:      "baseline_templates",
			Help:      "Templates in the active baseline.",
		},
	)
)

// Register attaches mirador-detect collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		recordsTotal,
		anomaliesTotal,
		trainingSeconds,
		detectionSeconds,
		baselineTemplates,
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

// ObserveTraining records one baseline training pass.
func ObserveTraining(duration time.Duration, records, templates int) {
	if duration < 0 {
		duration = 0
	}
	trainingSeconds.Observe(duration.Seconds())
	recordsTotal.WithLabelValues(StageTraining).Add(float64(records))
	baselineTemplates.Set(float64(templates))
}

// SetBaselineTemplates records the active baseline size, used when state
// is restored from artifacts rather than trained.
func SetBaselineTemplates(templates int) {
	baselineTemplates.Set(float64(templates))
}

// ObserveDetection records one detection pass.
func ObserveDetection(duration time.Duration, records int) {
	if duration < 0 {
		duration = 0
	}
	detectionSeconds.Observe(duration.Seconds())
	recordsTotal.WithLabelValues(StageDetection).Add(float64(records))
}

// RecordAnomaly counts one detected anomaly by type.
func RecordAnomaly(anomalyType string) {
	anomaliesTotal.WithLabelValues(anomalyType).Inc()
}
