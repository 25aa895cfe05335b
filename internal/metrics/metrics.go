// Package metrics exposes Prometheus collectors for the subscription engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farmshop"

// Materialization outcomes.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultNotDue    = "not_due"
	ResultInactive  = "inactive"
	ResultFailed    = "failed"
)

// Collector owns its registry so tests can build as many as they like.
// Recording methods are no-ops on a nil Collector.
type Collector struct {
	registry *prometheus.Registry

	Materializations *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	CadenceFallbacks prometheus.Counter
	SweepDuration    prometheus.Histogram
	SweepDue         prometheus.Gauge
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_materializations_total",
			Help:      "Delivery materialization attempts by outcome.",
		}, []string{"result"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_transitions_total",
			Help:      "Subscription lifecycle transitions.",
		}, []string{"transition"}),
		CadenceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cadence_fallbacks_total",
			Help:      "Next delivery dates computed with the weekly fallback for an unknown frequency.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of due-delivery sweeps.",
			Buckets:   prometheus.DefBuckets,
		}),
		SweepDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_due_subscriptions",
			Help:      "Subscriptions found due by the last sweep.",
		}),
	}
	reg.MustRegister(
		c.Materializations,
		c.Transitions,
		c.CadenceFallbacks,
		c.SweepDuration,
		c.SweepDue,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Materialized(result string) {
	if c == nil {
		return
	}
	c.Materializations.WithLabelValues(result).Inc()
}

func (c *Collector) Transition(name string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(name).Inc()
}

func (c *Collector) CadenceFallback() {
	if c == nil {
		return
	}
	c.CadenceFallbacks.Inc()
}

func (c *Collector) Sweep(due int, took time.Duration) {
	if c == nil {
		return
	}
	c.SweepDue.Set(float64(due))
	c.SweepDuration.Observe(took.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
