// Package metrics records scan outcomes as Prometheus metrics and exports
// them in the node-exporter textfile format.
package metrics

import (
	"github.com/KromDaniel/resafe/pkg/resafe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verdict label values.
const (
	VerdictSafe     = "safe"
	VerdictUnsafe   = "unsafe"
	VerdictFailed   = "failed"
	VerdictRejected = "rejected"
)

// Collector owns a private registry so several scans in one process never
// collide on the default registerer.
type Collector struct {
	registry *prometheus.Registry

	// checks counts checks by verdict.
	// Labels: verdict (safe, unsafe, failed, rejected)
	checks *prometheus.CounterVec

	// radius tracks the distribution of estimated spectral radii.
	radius prometheus.Histogram

	// states tracks automaton sizes after epsilon removal.
	states prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resafe",
			Name:      "checks_total",
			Help:      "Total regex checks by verdict",
		}, []string{"verdict"}),
		radius: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "resafe",
			Name:      "spectral_radius",
			Help:      "Estimated spectral radius of checked patterns",
			Buckets:   []float64{0, 0.5, 1, 1.5, 2, 3, 4, 8, 16, 32},
		}),
		states: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "resafe",
			Name:      "automaton_states",
			Help:      "Number of automaton states per checked pattern",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records one check. A nil result with an error counts as rejected;
// results carrying a status are recorded under that status.
func (c *Collector) Observe(res *resafe.Result, err error) {
	if res == nil {
		if err != nil {
			c.checks.WithLabelValues(VerdictRejected).Inc()
		}
		return
	}

	c.checks.WithLabelValues(Verdict(res)).Inc()
	if res.Status == resafe.StatusFailed {
		return
	}
	c.radius.Observe(res.Radius)
	c.states.Observe(float64(res.States))
}

// WriteTextfile writes every metric to path in the textfile collector format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Verdict maps a result to its label value.
func Verdict(res *resafe.Result) string {
	switch res.Status {
	case resafe.StatusFailed:
		return VerdictFailed
	case resafe.StatusUnsafe:
		return VerdictUnsafe
	default:
		return VerdictSafe
	}
}
