// Package main hosts the vidchunk CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into extraction
// runs, run-ledger queries, preflight checks, and configuration scaffolding.
// It centralizes configuration resolution and structured logging setup so
// subcommands can focus on presentation.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
