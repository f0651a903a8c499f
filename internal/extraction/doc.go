// Package extraction runs the chunk pipeline for one local video source.
//
// A run inspects the source, samples frames together with their presentation
// timestamps, aligns the two sequences into timestamp-keyed frames, and then
// cuts, transcribes and assembles one triplet per frame. Per-chunk work after
// alignment runs on a bounded errgroup; the assembled chunks are sorted by
// timestamp regardless of completion order.
//
// Failure policy:
//   - configuration problems (missing source, bad rate, no video stream) fail
//     the run before any output is written;
//   - a failed sampling pass degrades to a run with zero chunks;
//   - a failed audio window aborts the run, or drops only that chunk when the
//     window failure policy is "skip";
//   - transcription never fails a run.
//
// Every run returns a Result with a completeness Report and an event log, so
// callers can judge partial datasets without scraping logs.
package extraction
