// Package metrics collects prometheus metrics of a generation run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	m "nessie.dev/pkg/nessie/internal/model"
)

const (
	namespace = "nessie"
	subsystem = "generation"
)

// Recorder receives the events of a run. Run keeps them in its own registry.
type Recorder interface {
	TestGenerated(report m.TestReport)
	TestDiscarded(reason string)
	FunctionsDiscovered(n int)
	FunctionsKnown(n int)
	WriteTextfile(path string) error
}

// Run is a per-run set of metrics backed by a private registry.
type Run struct {
	registry   *prometheus.Registry
	generated  prometheus.Counter
	discarded  *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	discovered prometheus.Counter
	known      prometheus.Gauge
	duration   prometheus.Histogram
}

// NewRun creates the metrics of one run labelled with lib and runID.
func NewRun(lib, runID string) *Run {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"lib": lib, "run_id": runID}
	factory := promauto.With(registry)

	return &Run{
		registry: registry,

		// generated counts tests kept in the suite.
		generated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "tests_total",
			Help:        "Total tests generated and kept",
			ConstLabels: labels,
		}),

		// discarded counts failed attempts.
		// Labels: reason (test_run, trace_parse, write, other)
		discarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "discarded_total",
			Help:        "Total discarded generation attempts by reason",
			ConstLabels: labels,
		}, []string{"reason"}),

		// outcomes counts diagnosed calls.
		// Labels: outcome (no_callback, callback_sync, callback_async, error)
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "calls_total",
			Help:        "Total diagnosed calls by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		discovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "functions_discovered_total",
			Help:        "Total functions discovered at runtime",
			ConstLabels: labels,
		}),

		known: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "functions_known",
			Help:        "Functions currently in the registry",
			ConstLabels: labels,
		}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "test_duration_seconds",
			Help:        "Execution time of kept tests",
			ConstLabels: labels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

// TestGenerated records a kept test and its per-call outcomes.
func (r *Run) TestGenerated(report m.TestReport) {
	r.generated.Inc()
	r.duration.Observe(report.Duration.Seconds())

	for _, node := range report.Nodes {
		r.outcomes.WithLabelValues(node.Outcome.String()).Inc()
	}
}

// TestDiscarded records a failed attempt.
func (r *Run) TestDiscarded(reason string) {
	r.discarded.WithLabelValues(reason).Inc()
}

// FunctionsDiscovered adds n newly registered functions.
func (r *Run) FunctionsDiscovered(n int) {
	if n > 0 {
		r.discovered.Add(float64(n))
	}
}

// FunctionsKnown sets the registry size.
func (r *Run) FunctionsKnown(n int) {
	r.known.Set(float64(n))
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}
