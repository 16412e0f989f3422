package runner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/refguard/internal/engine"
	"github.com/roach88/refguard/internal/ir"
)

// DefaultConcurrency is the number of modules ingested at once within a wave.
const DefaultConcurrency = 4

// Ingester ingests one module. *engine.Run implements it.
type Ingester interface {
	Ingest(ctx context.Context, spec ir.ModuleSpec) (engine.Result, error)
}

// Sink receives each wave's results once the whole wave is ingested.
// Waves arrive in plan order; results keep the wave's module order.
type Sink interface {
	Wave(ctx context.Context, index int, results []engine.Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, index int, results []engine.Result) error

// Wave calls f.
func (f SinkFunc) Wave(ctx context.Context, index int, results []engine.Result) error {
	return f(ctx, index, results)
}

// Runner ingests planned waves into an Ingester.
type Runner struct {
	ingester    Ingester
	concurrency int
	sink        Sink
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds concurrent ingestions per wave. Values below 1 are
// ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithSink sets the sink that receives completed waves.
func WithSink(sink Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner over ingester.
func New(ingester Ingester, opts ...Option) *Runner {
	r := &Runner{
		ingester:    ingester,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ingests waves in order and returns every result in plan order.
//
// Run stops at the first failing wave: an ingestion error (in practice a
// configuration error from a closed or uninitialized run), a sink error or
// context cancellation. Results of the waves completed before the failure
// are returned along with the error.
func (r *Runner) Run(ctx context.Context, waves [][]ir.ModuleSpec) ([]engine.Result, error) {
	var all []engine.Result

	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return all, fmt.Errorf("wave %d: %w", i, err)
		}

		results, err := r.runWave(ctx, wave)
		if err != nil {
			return all, fmt.Errorf("wave %d: %w", i, err)
		}

		r.logger.Debug("wave ingested",
			"wave", i,
			"modules", len(wave),
			"violations", countViolations(results),
		)

		if r.sink != nil {
			if err := r.sink.Wave(ctx, i, results); err != nil {
				return all, fmt.Errorf("wave %d: sink: %w", i, err)
			}
		}
		all = append(all, results...)
	}

	return all, nil
}

func (r *Runner) runWave(ctx context.Context, wave []ir.ModuleSpec) ([]engine.Result, error) {
	results := make([]engine.Result, len(wave))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, spec := range wave {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.ingester.Ingest(gctx, spec)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func countViolations(results []engine.Result) int {
	n := 0
	for _, res := range results {
		n += len(res.Violations)
	}
	return n
}
