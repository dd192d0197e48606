package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_form"

// Metrics holds the Prometheus counters, histograms, and gauges for the form service.
type Metrics struct {
	Predictions        *prometheus.CounterVec // labels: label
	PredictionErrors   *prometheus.CounterVec // labels: kind={validation,unknown_category,unknown_class,model}
	PredictionDuration prometheus.Histogram
	PresetSelections   *prometheus.CounterVec // labels: preset
	SessionsCreated    prometheus.Counter
	TemplatesLoaded    prometheus.Gauge

	// Model backend metrics.
	PredictionCache      *prometheus.CounterVec // labels: result={hit,miss}
	ModelRequestDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful predictions by predicted label.",
		}, []string{"label"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed predictions by error kind.",
		}, []string{"kind"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Duration of encoding plus model inference for one prediction.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PresetSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preset_selections_total",
			Help:      "Preset selections by preset label.",
		}, []string{"preset"}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total form sessions started.",
		}),
		TemplatesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "templates_loaded",
			Help:      "Number of preset templates derived at startup.",
		}),
		PredictionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		ModelRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Remote model inference request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Predictions,
		m.PredictionErrors,
		m.PredictionDuration,
		m.PresetSelections,
		m.SessionsCreated,
		m.TemplatesLoaded,
		m.PredictionCache,
		m.ModelRequestDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
