// Package metrics exposes the import pipeline's prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockroom"

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	ImportRuns     *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	ImportItems    *prometheus.CounterVec

	ScansTotal       *prometheus.CounterVec
	ScanDispatched   prometheus.Counter
	DispatchFailures prometheus.Counter
}

// New creates and registers the metrics on reg, the default registerer if nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ImportRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Import runs by terminal outcome",
		}, []string{"outcome"}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of a single import run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ImportItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "items_total",
			Help:      "Feed items by reconciliation result",
		}, []string{"result"}),
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Periodic scans by outcome",
		}, []string{"outcome"}),
		ScanDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "dispatched_total",
			Help:      "Import runs dispatched by scans",
		}),
		DispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "dispatch_failures_total",
			Help:      "Import runs a scan failed to dispatch",
		}),
	}
}

// ObserveImport records one finished run. outcome is "succeeded" or the failure kind.
func (m *Metrics) ObserveImport(outcome string, took time.Duration, created, updated, skipped, failed int) {
	if m == nil {
		return
	}

	m.ImportRuns.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(took.Seconds())
	m.ImportItems.WithLabelValues("created").Add(float64(created))
	m.ImportItems.WithLabelValues("updated").Add(float64(updated))
	m.ImportItems.WithLabelValues("skipped").Add(float64(skipped))
	m.ImportItems.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveScan(outcome string, dispatched, dispatchErrors int) {
	if m == nil {
		return
	}

	m.ScansTotal.WithLabelValues(outcome).Inc()
	m.ScanDispatched.Add(float64(dispatched))
	m.DispatchFailures.Add(float64(dispatchErrors))
}
