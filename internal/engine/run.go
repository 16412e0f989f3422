package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/roach88/refguard/internal/engine"

// Run is one analysis run. It owns the run's ModuleGraph, which is created
// on the first ingestion and released by Close. Runs never share graphs.
//
// Thread-safety model:
//   - Ingest(): safe from any goroutine
//   - Close(): safe from any goroutine; later ingestions fail
//
// A zero Run has no graph factory, so every ingestion fails with a
// configuration error. Use NewRun.
type Run struct {
	id       string
	maxDepth int
	logger   *slog.Logger
	metrics  *Metrics
	registry *prometheus.Registry
	tracer   trace.Tracer
	clock    *Clock
	newGraph func() *ModuleGraph

	once   sync.Once
	graph  atomic.Pointer[ModuleGraph]
	closed atomic.Bool
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithMaxDepth sets the closure depth bound. Values below 1 are ignored.
//
// Default: 32 (DefaultMaxDepth)
func WithMaxDepth(depth int) RunOption {
	return func(r *Run) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
//
// Default: slog.Default()
func WithLogger(logger *slog.Logger) RunOption {
	return func(r *Run) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunID sets the run ID instead of generating a UUIDv7.
func WithRunID(id string) RunOption {
	return func(r *Run) {
		r.id = id
	}
}

// WithRunIDGenerator sets the generator used for the run ID.
func WithRunIDGenerator(gen RunIDGenerator) RunOption {
	return func(r *Run) {
		if gen != nil {
			r.id = gen.Generate()
		}
	}
}

// WithMetrics registers the run's collectors on reg instead of a private
// registry.
func WithMetrics(reg prometheus.Registerer) RunOption {
	return func(r *Run) {
		r.metrics = NewMetrics(reg)
		r.registry = nil
	}
}

// WithTracerProvider sets the tracer provider. Default: otel global.
func WithTracerProvider(tp trace.TracerProvider) RunOption {
	return func(r *Run) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock sets the sequence clock, for resuming a stored run.
func WithClock(c *Clock) RunOption {
	return func(r *Run) {
		r.clock = c
	}
}

// NewRun creates a run. The graph is not allocated until the first
// ingestion.
func NewRun(opts ...RunOption) *Run {
	reg := prometheus.NewRegistry()
	r := &Run{
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		metrics:  NewMetrics(reg),
		registry: reg,
		tracer:   otel.Tracer(tracerName),
		clock:    NewClock(),
		newGraph: NewModuleGraph,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = UUIDv7Generator{}.Generate()
	}
	return r
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// MaxDepth returns the closure depth bound.
func (r *Run) MaxDepth() int {
	return r.maxDepth
}

// Metrics returns the run's collectors.
func (r *Run) Metrics() *Metrics {
	return r.metrics
}

// Gatherer returns the run's private registry, or nil when WithMetrics
// supplied an external one.
func (r *Run) Gatherer() prometheus.Gatherer {
	if r.registry == nil {
		return nil
	}
	return r.registry
}

// Graph returns the run's graph, creating it on first use.
func (r *Run) Graph() (*ModuleGraph, error) {
	return r.acquireGraph("")
}

// Close releases the graph. Ingestions after Close fail with a
// configuration error. Close is idempotent.
func (r *Run) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.graph.Store(nil)
	if r.logger != nil {
		r.logger.Debug("run closed", "run_id", r.id)
	}
	return nil
}

func (r *Run) acquireGraph(module string) (*ModuleGraph, error) {
	if r.closed.Load() {
		return nil, NewConfigurationError(r.id, module, "run is closed")
	}
	r.once.Do(func() {
		if r.newGraph != nil {
			r.graph.Store(r.newGraph())
		}
	})
	g := r.graph.Load()
	if g == nil {
		return nil, NewConfigurationError(r.id, module, "module graph not initialized")
	}
	return g, nil
}
