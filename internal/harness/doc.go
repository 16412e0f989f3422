// Package harness runs conformance scenarios against the refguard engine.
//
// A scenario ingests modules one step at a time into a fresh engine run,
// persists every ingestion to an in-memory store, and evaluates assertions
// against both the in-memory trace and the stored violations.
//
// # Scenario Format
//
//	name: transitive_violation
//	description: "Main reaches Lib through Lib2"
//	max_depth: 32            # optional, engine default otherwise
//	run_id: scenario-run     # optional, fixed run ID for golden output
//	steps:
//	  - ingest: Lib
//	    rules: [Main]
//	  - ingest: Lib2
//	    references: [Lib]
//	  - ingest: Main
//	    references: [Lib2]
//	    expect:
//	      violations:
//	        - [Main, Lib2, Lib]
//	assertions:
//	  - type: violation_count
//	    count: 1
//	  - type: violation_path
//	    path: [Main, Lib2, Lib]
//	  - type: stored_violations
//	    declarer: Lib
//	    count: 1
//
// # Assertion Types
//
//   - violation_count: total violations across all steps
//   - violation_path: some violation has exactly this path
//   - no_violation: no violation matches referencer and/or declarer
//   - dropped_reference: a step for module dropped the given reference
//   - stored_violations: the store holds count violations matching the filter
//
// # Deterministic Testing
//
// Runs use a fixed run ID (testutil.FixedRunIDGenerator) and ingest steps
// sequentially, so seq numbers and traces are identical across runs. Traces
// are snapshotted as canonical JSON for golden comparison.
package harness
