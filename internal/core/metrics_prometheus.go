package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports simulator metrics to a Prometheus registry.
type PrometheusMetricsRecorder struct {
	duration      *prometheus.HistogramVec
	giftsAssigned prometheus.Counter
	removed       prometheus.Counter
	admitted      prometheus.Counter
	population    prometheus.Gauge
	catalog       prometheus.Gauge
	budgetUnit    prometheus.Gauge
}

// NewPrometheusMetricsRecorder registers the santasim collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "santasim_operation_duration_seconds",
			Help:    "Simulator operation duration in seconds by operation and status",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"operation", "status"}),
		giftsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "santasim_gifts_assigned_total",
			Help: "Gifts handed out across all rounds",
		}),
		removed: factory.NewCounter(prometheus.CounterOpts{
			Name: "santasim_children_removed_total",
			Help: "Children removed after aging into the terminal tier",
		}),
		admitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "santasim_children_admitted_total",
			Help: "Children admitted by annual changes",
		}),
		population: factory.NewGauge(prometheus.GaugeOpts{
			Name: "santasim_population_size",
			Help: "Children present in the most recent round",
		}),
		catalog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "santasim_catalog_size",
			Help: "Gifts left in the catalog after the most recent round",
		}),
		budgetUnit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "santasim_budget_unit",
			Help: "Budget unit of the most recent round",
		}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.duration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// ObserveRound implements RoundObserver.
func (r *PrometheusMetricsRecorder) ObserveRound(_ context.Context, stats RoundStats) {
	r.giftsAssigned.Add(float64(stats.GiftsAssigned))
	r.removed.Add(float64(stats.ChildrenRemoved))
	r.admitted.Add(float64(stats.ChildrenAdmitted))
	r.population.Set(float64(stats.Population))
	r.catalog.Set(float64(stats.CatalogSize))
	r.budgetUnit.Set(stats.BudgetUnit)
}

// MultiRecorder fans observations out to several recorders.
type MultiRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// ObserveRound forwards to every member that implements RoundObserver.
func (m MultiRecorder) ObserveRound(ctx context.Context, stats RoundStats) {
	for _, r := range m {
		if ro, ok := r.(RoundObserver); ok {
			ro.ObserveRound(ctx, stats)
		}
	}
}
