// Package metrics records per-sample benchmark timings as Prometheus
// metrics and exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/weiihann/sweepbench/harness"
)

const namespace = "sweepbench"

const (
	PhaseWarmup   = "warmup"
	PhaseMeasured = "measured"
)

// Recorder collects every sample reported by a harness.Runner.
//
// It owns a private registry, so several recorders can coexist in one
// process (tests, consecutive sweeps) without colliding on the default
// registerer.
type Recorder struct {
	Registry *prometheus.Registry

	// SampleSeconds is the distribution of single invocation runtimes.
	// Labels: method, algorithm, sweep, phase (warmup, measured)
	SampleSeconds *prometheus.HistogramVec

	// SamplesTotal counts timed invocations.
	// Labels: method, algorithm, phase
	SamplesTotal *prometheus.CounterVec

	// AverageSeconds is the post-warm-up mean reported for each record.
	// Labels: method, algorithm, sweep
	AverageSeconds *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		SampleSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sample_seconds",
				Help:      "Runtime of a single timed invocation.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 16),
			},
			[]string{"method", "algorithm", "sweep", "phase"},
		),
		SamplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_total",
				Help:      "Number of timed invocations.",
			},
			[]string{"method", "algorithm", "phase"},
		),
		AverageSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "average_seconds",
				Help:      "Mean runtime over measured repetitions.",
			},
			[]string{"method", "algorithm", "sweep"},
		),
	}

	r.Registry.MustRegister(r.SampleSeconds, r.SamplesTotal, r.AverageSeconds)

	return r
}

// ObserveSample implements harness.Observer.
func (r *Recorder) ObserveSample(s harness.Sample) {
	phase := PhaseMeasured
	if s.Warmup {
		phase = PhaseWarmup
	}

	r.SampleSeconds.WithLabelValues(s.Method, s.Operation, s.Sweep, phase).Observe(s.Elapsed.Seconds())
	r.SamplesTotal.WithLabelValues(s.Method, s.Operation, phase).Inc()
}

// RecordAverage sets the averaged runtime for one record.
func (r *Recorder) RecordAverage(method, algorithm, sweep string, seconds float64) {
	r.AverageSeconds.WithLabelValues(method, algorithm, sweep).Set(seconds)
}

// WriteTextfile writes all collected metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}

	return nil
}

var _ harness.Observer = (*Recorder)(nil)
