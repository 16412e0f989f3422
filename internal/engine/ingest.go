package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/refguard/internal/ir"
)

// Result is the outcome of ingesting one module.
type Result struct {
	// Spec is the module as supplied by the host.
	Spec ir.ModuleSpec

	// Seq is the run-local ingestion sequence number.
	Seq int64

	// Violations are in reference declaration order.
	Violations []ir.Violation

	// Dropped lists references to modules that had no node yet. These edges
	// are not part of the graph unless the module is ingested again.
	Dropped []string

	// Truncated is set when any closure stopped at the depth bound.
	Truncated bool
}

// Record converts the result into its persisted form.
func (res Result) Record(runID string) ir.IngestionRecord {
	return ir.IngestionRecord{
		RunID:      runID,
		Seq:        res.Seq,
		Module:     res.Spec,
		Dropped:    res.Dropped,
		Truncated:  res.Truncated,
		Violations: res.Violations,
	}
}

// Ingest adds spec to the run's graph and returns the violations spec
// commits through its references.
//
// Detection runs against the graph as it is now, before spec's own node is
// installed. Re-ingesting a module replaces its references and rules.
// The only error is a configuration error when the run has no graph.
func (r *Run) Ingest(ctx context.Context, spec ir.ModuleSpec) (Result, error) {
	g, err := r.acquireGraph(spec.Name)
	if err != nil {
		return Result{}, err
	}

	ctx, span := r.tracer.Start(ctx, "engine.ingest", trace.WithAttributes(
		attribute.String("refguard.run_id", r.id),
		attribute.String("refguard.module", spec.Name),
		attribute.Int("refguard.references", len(spec.References)),
		attribute.Int("refguard.rules", len(spec.Rules)),
	))
	defer span.End()

	res := Result{Spec: spec, Seq: r.clock.Next()}

	refs := make([]*Node, 0, len(spec.References))
	for _, name := range spec.References {
		n, ok := g.Get(name)
		if !ok {
			res.Dropped = append(res.Dropped, name)
			continue
		}
		refs = append(refs, n)
	}

	res.Violations, res.Truncated = r.detect(ctx, spec.Name, refs)
	g.Upsert(spec.Name, refs, spec.Rules)

	r.metrics.Ingestions.Inc()
	r.metrics.Violations.Add(float64(len(res.Violations)))
	r.metrics.DroppedReferences.Add(float64(len(res.Dropped)))
	r.metrics.GraphNodes.Set(float64(g.Len()))

	span.SetAttributes(
		attribute.Int64("refguard.seq", res.Seq),
		attribute.Int("refguard.violations", len(res.Violations)),
		attribute.Int("refguard.dropped", len(res.Dropped)),
		attribute.Bool("refguard.truncated", res.Truncated),
	)

	if len(res.Dropped) > 0 {
		r.logger.Debug("references dropped",
			"run_id", r.id,
			"module", spec.Name,
			"dropped", res.Dropped,
		)
	}
	r.logger.Debug("module ingested",
		"run_id", r.id,
		"module", spec.Name,
		"seq", res.Seq,
		"violations", len(res.Violations),
	)

	return res, nil
}
