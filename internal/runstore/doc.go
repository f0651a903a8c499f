// Package runstore persists extraction runs in SQLite so their status,
// chunks and events can be inspected after the process exits.
//
// The store implements extraction.Recorder. Each run row is inserted when
// the engine starts and rewritten, together with its chunks and events, in
// one transaction when the run finishes. Runs are addressed by their UUID,
// a unique prefix of it, or their label.
package runstore
