// Package metrics records conformance outcomes as Prometheus metrics and
// exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a private registry so that runs do not share counters. A nil
// *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cases     *prometheus.CounterVec
	tolerance *prometheus.HistogramVec
	duration  *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webnn",
			Subsystem: "conformance",
			Name:      "cases_total",
			Help:      "Conformance cases by operator, backend and status.",
		}, []string{"operator", "backend", "status"}),
		tolerance: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webnn",
			Subsystem: "conformance",
			Name:      "tolerance",
			Help:      "Resolved tolerance per checked case.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 64, 256, 1024, 8192, 65536},
		}, []string{"operator", "metric"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webnn",
			Subsystem: "conformance",
			Name:      "case_duration_seconds",
			Help:      "Wall time to build, compute and check one case.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"operator", "backend"}),
	}
}

// Registry exposes the recorder's registry, for serving or gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// Case counts one finished case.
func (r *Recorder) Case(operator, backend, status string, elapsed time.Duration) {
	if r == nil {
		return
	}

	r.cases.WithLabelValues(operator, backend, status).Inc()
	r.duration.WithLabelValues(operator, backend).Observe(elapsed.Seconds())
}

// Tolerance records the tolerance a case was checked against.
func (r *Recorder) Tolerance(operator, metric string, value float64) {
	if r == nil {
		return
	}

	r.tolerance.WithLabelValues(operator, metric).Observe(value)
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}

	return nil
}
