package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/plantabyte/hillclimbfit/internal/fit"
)

// Fit outcomes used as metric labels
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

var (
	// fitsStarted counts fits queued by method
	fitsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillclimbfit_fits_started_total",
		Help: "Total fits started by method",
	}, []string{"method"})

	// fitsFinished counts finished fits by method and outcome
	fitsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillclimbfit_fits_finished_total",
		Help: "Total fits finished by method and outcome",
	}, []string{"method", "outcome"})

	// fitDuration tracks wall time per fit
	fitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hillclimbfit_fit_duration_seconds",
		Help:    "Fit duration in seconds by method",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"method"})

	// fitIterations tracks iterations per fit
	fitIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hillclimbfit_fit_iterations",
		Help:    "Iterations used per fit by method",
		Buckets: prometheus.ExponentialBuckets(1, 4, 11), // 1 to ~1M
	}, []string{"method"})

	// activeJobs is the number of running jobs
	activeJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hillclimbfit_active_jobs",
		Help: "Number of jobs currently running",
	})
)

func recordStarted(methods []string) {
	for _, m := range methods {
		fitsStarted.WithLabelValues(m).Inc()
	}
}

func recordResults(results []fit.Result) {
	for _, res := range results {
		fitsFinished.WithLabelValues(res.Method, outcomeCompleted).Inc()
		fitDuration.WithLabelValues(res.Method).Observe(res.Elapsed.Seconds())
		fitIterations.WithLabelValues(res.Method).Observe(float64(res.Iterations))
	}
}

func recordOutcome(methods []string, outcome string) {
	for _, m := range methods {
		fitsFinished.WithLabelValues(m, outcome).Inc()
	}
}
