// Package metrics exports reconciliation counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/taxsync/pkg/differ"
	"github.com/agentstation/taxsync/pkg/reconcile"
	"github.com/agentstation/taxsync/pkg/records"
)

const namespace = "taxsync"

// Recorder is a reconcile.Observer backed by its own registry.
type Recorder struct {
	registry *prometheus.Registry

	changes        *prometheus.CounterVec
	failures       *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	runs           prometheus.Counter
	duration       prometheus.Histogram
	sourceRecords  prometheus.Gauge
	derivedRecords prometheus.Gauge
}

var _ reconcile.Observer = (*Recorder)(nil)

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Derived records added or removed",
		}, []string{"action"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Changes that could not be applied",
		}, []string{"action"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_files_total",
			Help:      "Matching files skipped for being malformed or missing an id",
		}, []string{"set"}),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed reconciliation runs",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		sourceRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_records",
			Help:      "Distinct ids in the source directory at the last run",
		}),
		derivedRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "derived_records",
			Help:      "Distinct ids in the derived directory at the start of the last run",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the collectors for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ObserveChange implements reconcile.Observer.
func (r *Recorder) ObserveChange(change differ.Change) {
	r.changes.WithLabelValues(string(change.Action)).Inc()
}

// ObserveFailure implements reconcile.Observer.
func (r *Recorder) ObserveFailure(change differ.Change, _ error) {
	r.failures.WithLabelValues(string(change.Action)).Inc()
}

// ObserveRun implements reconcile.Observer.
func (r *Recorder) ObserveRun(result *reconcile.Result) {
	r.runs.Inc()
	r.duration.Observe(result.Duration.Seconds())
	r.skipped.WithLabelValues(records.RoleSource).Add(float64(result.Stats.SourceSkipped))
	r.skipped.WithLabelValues(records.RoleDerived).Add(float64(result.Stats.DerivedSkipped))
	r.sourceRecords.Set(float64(result.Stats.SourceRecords))
	r.derivedRecords.Set(float64(result.Stats.DerivedRecords))
}
