// Package telemetry owns the process Prometheus metrics and the /metrics endpoint.
package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "titanic"

var (
	StepSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_step_seconds",
		Help:      "Time spent in one pipeline step, by step and phase (fit or transform).",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"step", "phase"})

	Fits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_fits_total",
		Help:      "Pipeline fits by result.",
	}, []string{"result"})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Scored passengers by predicted class.",
	}, []string{"class"})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_errors_total",
		Help:      "Field-level input validation errors by field.",
	}, []string{"field"})

	StreamRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_records_total",
		Help:      "Records read from the stream source by outcome.",
	}, []string{"outcome"})

	ModelGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_generation",
		Help:      "Number of times the serving pipeline has been replaced.",
	})
)

// ObserveStep records the duration of one step since start.
func ObserveStep(step, phase string, start time.Time) {
	StepSeconds.WithLabelValues(step, phase).Observe(time.Since(start).Seconds())
}

// Class returns the predictions label for a 0/1 prediction.
func Class(pred float64) string {
	if pred >= 0.5 {
		return "survived"
	}
	return "died"
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Expose serves /metrics on port in the background and returns the server so
// the caller can shut it down.
func Expose(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
