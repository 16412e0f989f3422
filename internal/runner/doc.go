// Package runner drives an engine run over a manifest.
//
// A manifest is planned into waves. Waves are ingested one after another;
// modules inside a wave are ingested concurrently. With the "topo" order a
// wave only holds modules whose references were ingested in earlier waves,
// so concurrent ingestion sees the same graph a sequential host would.
package runner
