// Package engine implements the refguard dependency constraint engine.
//
// A Run owns one ModuleGraph for the lifetime of an analysis run. Modules are
// ingested one at a time, possibly from many goroutines:
//
//  1. Each declared reference is looked up in the graph. References whose
//     module has not been ingested yet are dropped for this pass.
//  2. For every surviving reference, in declaration order, the forbidden
//     referrer closure is computed. If it names the module being ingested a
//     violation is emitted with the reference chain that proves it.
//  3. The module's node is upserted with the surviving references and its
//     own rules.
//
// There is no global lock. The only atomic step is the per-key upsert, so a
// concurrent ingestion may observe a sibling's old or new state but never a
// half-written one. Closure traversal is bounded by a maximum depth; hitting
// the bound truncates the closure and is reported, not failed.
//
// Violations are reported for the module being ingested only. Modules
// ingested earlier are never re-checked when their dependencies change.
package engine
