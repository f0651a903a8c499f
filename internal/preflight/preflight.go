package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"vidchunk/internal/config"
	"vidchunk/internal/transcribe"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, CheckBinaryVersion(ctx, status.Name, status.Command))
	}

	results = append(results,
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	)
	if textfile := strings.TrimSpace(cfg.Metrics.Textfile); textfile != "" {
		results = append(results, CheckDirectoryAccess("Metrics directory", filepath.Dir(textfile)))
	}

	if cfg.Transcription.Enabled {
		results = append(results,
			CheckSpeechEngine(transcribe.DefaultEngine()),
			CheckModelDir(cfg.Transcription.ModelDir),
		)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
