package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainingDuration *prometheus.HistogramVec
	forecastDuration *prometheus.HistogramVec
	forecastSteps    *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	artifactLookups  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		trainingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coincast_training_duration_seconds",
				Help:    "Duration of model training runs in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"symbol", "model", "interval"},
		),
		forecastDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coincast_forecast_duration_seconds",
				Help:    "Duration of forecast rollouts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol", "model"},
		),
		forecastSteps: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coincast_forecast_steps",
				Help:    "Requested forecast horizon lengths",
				Buckets: []float64{1, 5, 10, 30, 50, 100},
			},
			[]string{"model"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coincast_last_price",
				Help: "Last observed live price for a symbol",
			},
			[]string{"symbol"},
		),
		artifactLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coincast_artifact_lookups_total",
				Help: "Model artifact store lookups by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordTraining records a completed training run.
func (r *Recorder) RecordTraining(symbol, model, interval string, seconds float64) {
	r.trainingDuration.WithLabelValues(symbol, model, interval).Observe(seconds)
}

// RecordForecast records a completed forecast rollout.
func (r *Recorder) RecordForecast(symbol, model string, steps int, seconds float64) {
	r.forecastDuration.WithLabelValues(symbol, model).Observe(seconds)
	r.forecastSteps.WithLabelValues(model).Observe(float64(steps))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last live price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordArtifactLookup records whether a model lookup hit the store.
func (r *Recorder) RecordArtifactLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.artifactLookups.WithLabelValues(outcome).Inc()
}
