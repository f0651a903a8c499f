// Package logging assembles structured slog loggers and formatting helpers used
// across vidchunk.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with run IDs, stage names, and chunk keys. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
