package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/refguard/internal/ir"
)

// detect checks each resolved reference of module, in declaration order, and
// returns one violation per reference whose closure names module.
//
// The second result reports whether any closure hit the depth bound.
func (r *Run) detect(ctx context.Context, module string, refs []*Node) ([]ir.Violation, bool) {
	span := trace.SpanFromContext(ctx)

	var violations []ir.Violation
	truncated := false

	for _, ref := range refs {
		closure := ForbiddenReferrers(ref, r.maxDepth)
		r.metrics.ClosureSize.Observe(float64(closure.Len()))

		if closure.Truncated {
			truncated = true
			r.metrics.DepthGuardTrips.Inc()
			r.logger.Debug("depth guard tripped",
				"run_id", r.id,
				"module", module,
				"reference", ref.Name(),
				"max_depth", r.maxDepth,
			)
			span.AddEvent("depth_guard_tripped", trace.WithAttributes(
				attribute.String("refguard.reference", ref.Name()),
				attribute.Int("refguard.max_depth", r.maxDepth),
			))
		}

		if !closure.Contains(module) {
			continue
		}

		chain := chainFor(module, ref, r.maxDepth)
		if chain == nil {
			// The graph changed between the closure and the path search.
			r.metrics.EvidenceLost.Inc()
			r.logger.Warn("violation skipped: no reference chain",
				"run_id", r.id,
				"module", module,
				"reference", ref.Name(),
			)
			continue
		}

		v := ir.NewViolation(module, chain[len(chain)-1], chain)
		violations = append(violations, v)
		span.AddEvent("violation", trace.WithAttributes(
			attribute.String("refguard.declarer", v.Declarer),
			attribute.String("refguard.chain", v.Chain()),
		))
	}

	return violations, truncated
}
