package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
//
// Each run registers its own collectors, normally on its own registry, so
// concurrent runs never share counters.
type Metrics struct {
	Ingestions        prometheus.Counter
	Violations        prometheus.Counter
	DroppedReferences prometheus.Counter
	DepthGuardTrips   prometheus.Counter
	EvidenceLost      prometheus.Counter
	GraphNodes        prometheus.Gauge
	ClosureSize       prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ingestions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refguard_ingestions_total",
			Help: "Total number of module ingestions",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refguard_violations_total",
			Help: "Total number of forbidden-reference violations emitted",
		}),
		DroppedReferences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refguard_dropped_references_total",
			Help: "References dropped because the target module was not yet ingested",
		}),
		DepthGuardTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refguard_depth_guard_trips_total",
			Help: "Closure computations truncated at the depth bound",
		}),
		EvidenceLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "refguard_evidence_lost_total",
			Help: "Violations skipped because no reference chain could be rebuilt",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "refguard_graph_nodes",
			Help: "Number of modules in the run's graph",
		}),
		ClosureSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "refguard_closure_size",
			Help:    "Number of forbidden referrers per computed closure",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Ingestions,
			m.Violations,
			m.DroppedReferences,
			m.DepthGuardTrips,
			m.EvidenceLost,
			m.GraphNodes,
			m.ClosureSize,
		)
	}
	return m
}
