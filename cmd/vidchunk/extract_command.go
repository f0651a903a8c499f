package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidchunk/internal/deps"
	"vidchunk/internal/extraction"
	"vidchunk/internal/logging"
	"vidchunk/internal/metrics"
	"vidchunk/internal/preflight"
	"vidchunk/internal/runstore"
	"vidchunk/internal/services"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		fps        float64
		window     float64
		outDir     string
		workers    int
		jsonOut    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "extract <video>",
		Short: "Sample frames and cut audio windows and transcripts for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			runCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
			logger = logging.WithContext(runCtx, logger)

			if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Command)
				}
				return services.Wrap(services.ErrConfiguration, "preflight", "binaries",
					"missing "+strings.Join(names, ", ")+"; run `vidchunk check`", nil)
			}

			collector := metrics.New()
			opts := []extraction.Option{
				extraction.WithLogger(logger),
				extraction.WithMetrics(collector),
			}
			if !jsonOut && !noProgress && shouldColorize(cmd.ErrOrStderr()) {
				reporter := newProgressReporter(cmd.ErrOrStderr())
				defer reporter.finish()
				opts = append(opts, extraction.WithProgress(reporter.update))
			}

			store, storeErr := runstore.Open(cfg)
			if storeErr != nil {
				logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
					logging.Error(storeErr),
					logging.String(logging.FieldImpact, "run will not appear in `vidchunk runs`"),
				)
			} else {
				defer store.Close()
				opts = append(opts, extraction.WithRecorder(store))
			}

			engine := extraction.New(cfg, append(opts, ctx.engineOpts...)...)
			res, runErr := engine.Run(runCtx, extraction.Request{
				Source:        args[0],
				OutputDir:     outDir,
				FPS:           fps,
				WindowSeconds: window,
				Workers:       workers,
			})

			if textfile := strings.TrimSpace(cfg.Metrics.Textfile); textfile != "" {
				if err := collector.WriteTextfile(textfile); err != nil {
					logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
						logging.Error(err),
						logging.String("path", textfile),
					)
				}
			}

			if jsonOut && res != nil {
				if err := writeJSON(cmd, "run_result", res); err != nil {
					return err
				}
			} else if res != nil && runErr == nil {
				printRunSummary(cmd.OutOrStdout(), res)
			}
			return runErr
		},
	}

	cmd.Flags().Float64Var(&fps, "fps", 0, "Frames sampled per second (default extraction.fps)")
	cmd.Flags().Float64Var(&window, "window", 0, "Audio window length in seconds (default extraction.window_seconds)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default <work_dir>/<run label>)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel window/transcribe workers (default extraction.workers)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func printRunSummary(out io.Writer, res *extraction.Result) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Extraction", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, fmt.Sprintf("%s (%s)", res.RunID, res.Label), colorize))
	fmt.Fprintln(out, renderStatusLine("Output", statusInfo, res.OutputDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Manifest", statusInfo, filepath.Base(res.ManifestPath), colorize))

	kind := statusOK
	if !res.Report.Complete() {
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Chunks", kind, fmt.Sprintf("%d in %s", len(res.Chunks), res.Elapsed().Round(10*time.Millisecond)), colorize))
	for _, line := range reportLines(res.Report, colorize) {
		fmt.Fprintln(out, line)
	}
}

func reportLines(report extraction.Report, colorize bool) []string {
	var lines []string
	if report.SamplingFailed {
		lines = append(lines, renderStatusLine("Sampling", statusError, "ffmpeg failed; no frames were produced", colorize))
	}
	if report.DroppedFrames > 0 || report.DroppedTimestamps > 0 {
		lines = append(lines, renderStatusLine("Alignment", statusWarn,
			fmt.Sprintf("%d frames, %d timestamps; dropped %d frames and %d timestamps",
				report.FramesSampled, report.TimestampsRecovered, report.DroppedFrames, report.DroppedTimestamps), colorize))
	}
	if report.WindowsFailed > 0 {
		lines = append(lines, renderStatusLine("Audio windows", statusWarn, fmt.Sprintf("%d failed and were skipped", report.WindowsFailed), colorize))
	}
	if report.ShortWindows > 0 {
		lines = append(lines, renderStatusLine("Short windows", statusInfo, fmt.Sprintf("%d clipped at end of source", report.ShortWindows), colorize))
	}
	if report.TranscriptionDegraded {
		lines = append(lines, renderStatusLine("Transcription", statusWarn, "degraded: "+report.DegradedReason, colorize))
	} else if report.EmptyTranscripts > 0 {
		lines = append(lines, renderStatusLine("Transcription", statusInfo, fmt.Sprintf("%d windows without speech", report.EmptyTranscripts), colorize))
	}
	return lines
}
