// Package metrics exports EGO run statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/egoserver/internal/optimization"
	"github.com/copyleftdev/egoserver/internal/optimization/ego"
)

// Collector holds the EGO metrics
type Collector struct {
	evaluations         prometheus.Counter
	refits              *prometheus.CounterVec
	runs                *prometheus.CounterVec
	bestValue           *prometheus.GaugeVec
	expectedImprovement prometheus.Histogram
}

// NewCollector creates the metrics and registers them with registry
func NewCollector(registry prometheus.Registerer) *Collector {
	c := &Collector{
		evaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ego_objective_evaluations_total",
				Help: "Total number of objective function evaluations",
			},
		),
		refits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ego_refits_total",
				Help: "Total number of surrogate refits by kind",
			},
			[]string{"kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ego_runs_total",
				Help: "Total number of finished runs by stop reason",
			},
			[]string{"reason"},
		),
		bestValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ego_best_value",
				Help: "Best objective value found by each run",
			},
			[]string{"run"},
		),
		expectedImprovement: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ego_expected_improvement",
				Help:    "Expected improvement of accepted candidates",
				Buckets: prometheus.ExponentialBuckets(1e-8, 10, 12),
			},
		),
	}

	registry.MustRegister(c.evaluations)
	registry.MustRegister(c.refits)
	registry.MustRegister(c.runs)
	registry.MustRegister(c.bestValue)
	registry.MustRegister(c.expectedImprovement)
	return c
}

// Run returns an observer that reports the run's events under id
func (c *Collector) Run(id string) ego.Observer {
	return &runObserver{collector: c, best: c.bestValue.WithLabelValues(id)}
}

// Forget removes the per-run series of id
func (c *Collector) Forget(id string) {
	c.bestValue.DeleteLabelValues(id)
}

type runObserver struct {
	collector *Collector
	best      prometheus.Gauge
}

func (o *runObserver) ObserveEvaluation(value, best float64) {
	o.collector.evaluations.Inc()
	o.best.Set(best)
}

func (o *runObserver) ObserveExpectedImprovement(value float64) {
	o.collector.expectedImprovement.Observe(value)
}

func (o *runObserver) ObserveRefit(full bool) {
	kind := "conditional"
	if full {
		kind = "estimation"
	}
	o.collector.refits.WithLabelValues(kind).Inc()
}

func (o *runObserver) ObserveStop(reason optimization.StopReason) {
	o.collector.runs.WithLabelValues(string(reason)).Inc()
}
