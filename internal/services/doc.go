// Package services defines shared utilities consumed by the extraction stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, chunk keys, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that give every failure a
//     stage-tagged message and a stable classification (see Kind).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
