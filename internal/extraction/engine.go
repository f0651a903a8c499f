package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vidchunk/internal/alignment"
	"vidchunk/internal/config"
	"vidchunk/internal/dataset"
	"vidchunk/internal/logging"
	"vidchunk/internal/media/decode"
	"vidchunk/internal/media/ffprobe"
	"vidchunk/internal/metrics"
	"vidchunk/internal/services"
	"vidchunk/internal/transcribe"
	"vidchunk/internal/window"
)

// Inspector reads container metadata for a source.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Recorder persists run state so other processes can poll it. Recorder
// errors are logged and never fail a run.
type Recorder interface {
	RunStarted(ctx context.Context, res *Result) error
	RunFinished(ctx context.Context, res *Result) error
}

// Engine runs extractions with a fixed configuration.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   decode.CommandRunner
	inspect  Inspector
	speech   transcribe.Engine
	recorder Recorder
	metrics  *metrics.Collector
	progress func(Progress)
	now      func() time.Time
	newID    func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logging.NewComponentLogger(logger, "extraction") }
}

// WithCommandRunner replaces the ffmpeg process runner.
func WithCommandRunner(runner decode.CommandRunner) Option {
	return func(e *Engine) { e.runner = runner }
}

// WithInspector replaces the ffprobe inspection.
func WithInspector(inspect Inspector) Option {
	return func(e *Engine) {
		if inspect != nil {
			e.inspect = inspect
		}
	}
}

// WithSpeechEngine sets the speech engine used when transcription is enabled.
func WithSpeechEngine(engine transcribe.Engine) Option {
	return func(e *Engine) { e.speech = engine }
}

// WithRecorder registers a run ledger.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithMetrics registers a metrics collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// WithProgress registers a callback invoked after every finished chunk. It
// may be called from several goroutines at once.
func WithProgress(fn func(Progress)) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Engine.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(nil, "extraction"),
		inspect: ffprobe.Inspect,
		speech:  transcribe.DefaultEngine(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// settings is a Request resolved against configuration.
type settings struct {
	source        string
	outDir        string
	fps           float64
	windowSeconds float64
	workers       int
	imageExt      string
	singlePass    bool
	alignPolicy   alignment.Policy
	windowPolicy  string
}

// run carries the mutable state of one extraction.
type run struct {
	engine  *Engine
	set     settings
	res     *Result
	events  *eventLog
	logger  *slog.Logger
	decoder *decode.Decoder

	mu   sync.Mutex
	done int
}

// Run extracts chunks from req.Source. The returned Result is non-nil even
// when err is not, and records how far the run got.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if e == nil || e.cfg == nil {
		return nil, &StageError{Stage: StageValidate, Err: services.Wrap(services.ErrConfiguration, StageValidate, "init", "engine not configured", nil)}
	}
	started := e.now()
	r := &run{
		engine: e,
		res: &Result{
			RunID:     e.newID(),
			Source:    req.Source,
			Status:    StatusRunning,
			StartedAt: started.UTC(),
		},
		events: &eventLog{now: e.now},
	}
	r.res.Label = RunLabel(req.Source, started)
	ctx = services.WithRunID(ctx, r.res.RunID)
	r.logger = logging.WithContext(ctx, e.logger)

	set, err := e.resolve(req, r.res.Label)
	if err != nil {
		return r.fail(ctx, StageValidate, err, false)
	}
	r.set = set
	r.res.Source = set.source
	r.res.FPS = set.fps
	r.res.WindowSeconds = set.windowSeconds
	r.res.OutputDir = set.outDir

	if err := r.inspectSource(ctx); err != nil {
		return r.fail(ctx, StageInspect, err, false)
	}

	if err := os.MkdirAll(set.outDir, 0o755); err != nil {
		return r.fail(ctx, StageValidate, services.Wrap(services.ErrConfiguration, StageValidate, "create output dir", set.outDir, err), false)
	}
	lock, err := lockOutputDir(set.outDir)
	if err != nil {
		return r.fail(ctx, StageValidate, err, false)
	}
	defer func() { _ = lock.Unlock() }()

	if e.recorder != nil {
		if err := e.recorder.RunStarted(ctx, r.res); err != nil {
			logging.WarnWithContext(r.logger, "run ledger unavailable", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will not appear in `vidchunk runs`"),
			)
		}
	}
	r.logger.Info("extraction started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", set.source),
		logging.String("output_dir", set.outDir),
		logging.Float64("fps", set.fps),
		logging.Float64("window_seconds", set.windowSeconds),
		logging.Int("workers", set.workers),
	)

	r.decoder = decode.New(e.cfg.FFmpegBinary(),
		decode.WithLogger(e.logger),
		decode.WithTimeout(e.cfg.ToolTimeout()),
		decode.WithCommandRunner(e.runner),
	)

	frames, stamps, err := r.sample(ctx)
	if err != nil {
		return r.fail(ctx, StageSample, err, true)
	}

	aligned, err := r.align(frames, stamps)
	if err != nil {
		return r.fail(ctx, StageAlign, err, true)
	}

	chunks, err := r.chunks(ctx, aligned)
	if err != nil {
		return r.fail(ctx, StageWindow, err, true)
	}
	return r.finish(ctx, chunks)
}

func (e *Engine) resolve(req Request, label string) (settings, error) {
	ext := e.cfg.Extraction
	set := settings{
		fps:           firstPositive(req.FPS, ext.FPS),
		windowSeconds: firstPositive(req.WindowSeconds, ext.WindowSeconds),
		workers:       req.Workers,
		imageExt:      ext.ImageFormat,
		singlePass:    ext.SinglePass,
		windowPolicy:  strings.ToLower(strings.TrimSpace(ext.WindowFailure)),
	}
	if set.workers <= 0 {
		set.workers = ext.Workers
	}
	if set.workers <= 0 {
		set.workers = 1
	}
	if set.imageExt == "" || set.imageExt == "jpeg" {
		set.imageExt = "jpg"
	}
	if set.windowPolicy == "" {
		set.windowPolicy = window.Abort
	}

	if math.IsNaN(set.fps) || math.IsInf(set.fps, 0) || set.fps <= 0 {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "fps", fmt.Sprintf("must be > 0, got %v", set.fps), nil)
	}
	if math.IsNaN(set.windowSeconds) || math.IsInf(set.windowSeconds, 0) || set.windowSeconds <= 0 {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "window", fmt.Sprintf("must be > 0, got %v", set.windowSeconds), nil)
	}
	if set.windowPolicy != window.Abort && set.windowPolicy != window.Skip {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "window failure policy", set.windowPolicy, nil)
	}
	policy, err := alignment.ParsePolicy(ext.AlignmentPolicy)
	if err != nil {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "alignment policy", "", err)
	}
	set.alignPolicy = policy

	source := strings.TrimSpace(req.Source)
	if source == "" {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "source", "source path required", nil)
	}
	source, err = config.ExpandPath(source)
	if err != nil {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "source", "", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return set, services.Wrap(services.ErrConfiguration, StageValidate, "source", "source not found: "+source, err)
		}
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "source", "", err)
	}
	if info.IsDir() {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "source", source+" is a directory", nil)
	}
	set.source = source

	outDir := strings.TrimSpace(req.OutputDir)
	if outDir == "" {
		outDir = filepath.Join(e.cfg.Paths.WorkDir, label)
	}
	outDir, err = config.ExpandPath(outDir)
	if err != nil {
		return set, services.Wrap(services.ErrConfiguration, StageValidate, "output dir", "", err)
	}
	set.outDir = outDir
	return set, nil
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// inspectSource records the duration and rejects sources without video. An
// unavailable ffprobe only costs the chunk-count bound.
func (r *run) inspectSource(ctx context.Context) error {
	started := r.engine.now()
	defer func() { r.engine.metrics.ObserveStage(StageInspect, r.engine.now().Sub(started)) }()

	probe, err := r.engine.inspect(ctx, r.engine.cfg.FFprobeBinary(), r.set.source)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.WarnWithContext(r.logger, "source inspection failed; continuing without duration", "inspect_failed",
			logging.String(logging.FieldStage, StageInspect),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that ffprobe is installed"),
			logging.String(logging.FieldImpact, "chunk count bound is not checked"),
		)
		r.events.add("warn", StageInspect, "", "ffprobe failed: "+err.Error())
		return nil
	}
	if _, ok := probe.VideoStream(); !ok {
		return services.Wrap(services.ErrConfiguration, StageInspect, "video stream", r.set.source+" has no video stream", nil)
	}
	if !probe.HasAudio() {
		r.events.add("warn", StageInspect, "", "source has no audio stream; every window cut will fail")
	}
	if d := probe.DurationSeconds(); d > 0 && !math.IsNaN(d) {
		r.res.Duration = d
	}
	r.res.Report.MaxSamples = probe.MaxSamples(r.set.fps)
	return nil
}

// sample produces the raw frame listing and timestamp sequence. A failed
// ffmpeg pass degrades to an empty run.
func (r *run) sample(ctx context.Context) ([]string, []float64, error) {
	started := r.engine.now()
	defer func() { r.engine.metrics.ObserveStage(StageSample, r.engine.now().Sub(started)) }()
	stageCtx := services.WithStage(ctx, StageSample)
	set := r.set

	var (
		frames []string
		stamps []float64
		err    error
	)
	if set.singlePass {
		var sampling decode.Sampling
		sampling, err = r.decoder.Sample(stageCtx, set.source, set.fps, set.outDir, set.imageExt)
		frames, stamps = sampling.Frames, sampling.Timestamps
	} else {
		frames, err = r.decoder.SampleFrames(stageCtx, set.source, set.fps, set.outDir, set.imageExt)
		if err == nil {
			stamps, err = r.decoder.RecoverTimestamps(services.WithStage(ctx, StageTimestamps), set.source, set.fps)
		}
	}
	if err != nil {
		if ctx.Err() != nil || !isToolFailure(err) {
			return nil, nil, err
		}
		r.degradeSampling(err)
		return nil, nil, nil
	}

	r.res.Report.FramesSampled = len(frames)
	r.res.Report.TimestampsRecovered = len(stamps)
	r.logger.Info("sampling complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, StageSample),
		logging.Int("frames", len(frames)),
		logging.Int("timestamps", len(stamps)),
		logging.Bool("single_pass", set.singlePass),
	)
	return frames, stamps, nil
}

func (r *run) degradeSampling(err error) {
	r.res.Report.SamplingFailed = true
	stage := StageSample
	var toolErr *decode.ToolError
	if errors.As(err, &toolErr) {
		stage = toolErr.Stage
	}
	logging.WarnWithContext(r.logger, "frame sampling failed; run yields no chunks", "sampling_failed",
		logging.String(logging.FieldStage, stage),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run ffmpeg against the source manually"),
		logging.String(logging.FieldImpact, "zero chunks"),
	)
	r.events.add("warn", stage, "", "sampling failed: "+err.Error())
	raw, listErr := decode.ListFrames(r.set.outDir, r.set.imageExt)
	if listErr == nil {
		_ = alignment.RemoveDropped(raw)
	}
}

func isToolFailure(err error) bool {
	return errors.Is(err, services.ErrExternalTool) || errors.Is(err, services.ErrTimeout)
}

// align pairs frames with timestamps and renames the images to their keys.
func (r *run) align(frames []string, stamps []float64) ([]alignment.SampledFrame, error) {
	started := r.engine.now()
	defer func() { r.engine.metrics.ObserveStage(StageAlign, r.engine.now().Sub(started)) }()

	outcome, err := alignment.Align(frames, stamps, r.set.alignPolicy)
	if err != nil {
		return nil, err
	}
	report := &r.res.Report
	report.DroppedFrames = len(outcome.DroppedFrames)
	report.DroppedTimestamps = len(outcome.DroppedTimestamps)
	r.engine.metrics.AddDropped("frame", report.DroppedFrames)
	r.engine.metrics.AddDropped("timestamp", report.DroppedTimestamps)
	if outcome.Mismatch() {
		msg := fmt.Sprintf("%d frames but %d timestamps; truncated to %d", outcome.FramesSeen, outcome.TimestampsSeen, len(outcome.Frames))
		r.events.add("warn", StageAlign, "", msg)
		logging.WarnWithContext(r.logger, "frame and timestamp counts differ", "alignment_truncated",
			logging.String(logging.FieldStage, StageAlign),
			logging.Int("frames", outcome.FramesSeen),
			logging.Int("timestamps", outcome.TimestampsSeen),
			logging.String(logging.FieldErrorHint, "set extraction.single_pass = true or alignment_policy = \"strict\""),
			logging.String(logging.FieldImpact, "surplus frames or timestamps dropped"),
		)
	}
	if err := alignment.RemoveDropped(outcome.DroppedFrames); err != nil {
		r.logger.Debug("could not remove surplus frames", logging.Error(err))
	}

	aligned, err := alignment.Apply(outcome.Frames, r.set.outDir)
	if err != nil {
		return nil, err
	}
	report.Aligned = len(aligned)
	if bound := report.MaxSamples; bound > 0 && len(aligned) > bound {
		r.events.add("warn", StageAlign, "", fmt.Sprintf("%d chunks exceed the %d samples the source duration allows", len(aligned), bound))
	}
	return aligned, nil
}

// chunks cuts, transcribes and assembles every aligned frame.
func (r *run) chunks(ctx context.Context, aligned []alignment.SampledFrame) ([]dataset.Chunk, error) {
	started := r.engine.now()
	defer func() { r.engine.metrics.ObserveStage(StageWindow, r.engine.now().Sub(started)) }()

	cfg := r.engine.cfg
	var speech transcribe.Engine
	if cfg.Transcription.Enabled {
		speech = r.engine.speech
	}
	transcriber := transcribe.New(speech, cfg.Transcription.ModelDir,
		transcribe.WithBlockFrames(cfg.Transcription.BlockFrames),
		transcribe.WithLogger(r.engine.logger),
	)
	defer transcriber.Close()
	if len(aligned) > 0 && transcriber.Load() == transcribe.Degraded {
		r.res.Report.TranscriptionDegraded = true
		r.res.Report.DegradedReason = transcriber.DegradedReason()
		r.events.add("warn", StageTranscribe, "", "transcription degraded: "+transcriber.DegradedReason())
	}

	windower := window.New(r.decoder, r.set.outDir, r.engine.logger)
	assembler := dataset.New(r.set.outDir)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.set.workers)
	for _, frame := range aligned {
		frame := frame
		g.Go(func() error {
			return r.chunk(gctx, frame, len(aligned), windower, transcriber, assembler)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest := dataset.Manifest{
		RunID:         r.res.RunID,
		Label:         r.res.Label,
		Source:        r.set.source,
		FPS:           r.set.fps,
		WindowSeconds: r.set.windowSeconds,
		CreatedAt:     r.engine.now().UTC(),
	}
	path, err := assembler.WriteManifest(manifest)
	if err != nil {
		return nil, &StageError{Stage: StageAssemble, Err: err}
	}
	r.res.ManifestPath = path
	return assembler.Chunks(), nil
}

func (r *run) chunk(ctx context.Context, frame alignment.SampledFrame, total int, windower *window.Windower, transcriber *transcribe.Transcriber, assembler *dataset.Assembler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunkCtx := services.WithChunkKey(ctx, frame.Key)

	win, err := windower.Window(chunkCtx, r.set.source, frame.Timestamp, r.set.windowSeconds)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.set.windowPolicy != window.Skip {
			return &StageError{Stage: StageWindow, Err: err}
		}
		r.dropChunk(frame, windower.Path(frame.Key), err)
		r.advance(frame.Key, total)
		return nil
	}

	tr := transcriber.Transcribe(chunkCtx, win)
	chunk, err := assembler.Add(frame, win, tr)
	if err != nil {
		return &StageError{Stage: StageAssemble, Err: err}
	}
	r.engine.metrics.AddChunk(string(chunk.Outcome))

	r.mu.Lock()
	if win.Short {
		r.res.Report.ShortWindows++
	}
	if tr.Outcome != transcribe.OutcomeRecognized {
		r.res.Report.EmptyTranscripts++
	}
	r.mu.Unlock()
	if win.Short {
		r.events.add("info", StageWindow, frame.Key, fmt.Sprintf("audio window is %.3fs of %.3fs requested", win.Actual, win.Duration))
	}
	r.advance(frame.Key, total)
	return nil
}

// dropChunk removes the artifacts of a chunk whose window could not be cut.
func (r *run) dropChunk(frame alignment.SampledFrame, audioPath string, err error) {
	r.mu.Lock()
	r.res.Report.WindowsFailed++
	r.mu.Unlock()
	r.engine.metrics.AddDropped("window", 1)

	logging.WarnWithContext(r.logger, "audio window failed; chunk dropped", "window_failed",
		logging.String(logging.FieldChunkKey, frame.Key),
		logging.Error(err),
		logging.String(logging.FieldImpact, "dataset is missing this instant"),
	)
	r.events.add("warn", StageWindow, frame.Key, "chunk dropped: "+err.Error())
	_ = alignment.RemoveDropped([]string{frame.ImagePath, audioPath})
}

func (r *run) advance(key string, total int) {
	r.mu.Lock()
	r.done++
	done := r.done
	r.mu.Unlock()
	if r.engine.progress != nil {
		r.engine.progress(Progress{Stage: StageWindow, Key: key, Done: done, Total: total})
	}
}

func (r *run) finish(ctx context.Context, chunks []dataset.Chunk) (*Result, error) {
	res := r.res
	res.Chunks = chunks
	res.Status = StatusCompleted
	res.FinishedAt = r.engine.now().UTC()
	if !res.Report.Complete() {
		r.events.add("warn", StageAssemble, "", "dataset is incomplete; see report")
	}
	res.Events = r.events.snapshot()
	r.engine.metrics.FinishRun(string(res.Status), res.FinishedAt)
	r.record(ctx)

	r.logger.Info("extraction complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("chunks", len(chunks)),
		logging.Bool("complete", res.Report.Complete()),
		logging.Int("empty_transcripts", res.Report.EmptyTranscripts),
		logging.Duration("elapsed", res.Elapsed()),
	)
	return res, nil
}

// fail finalizes a run that could not complete. recorded reports whether the
// ledger already knows about the run.
func (r *run) fail(ctx context.Context, stage string, err error, recorded bool) (*Result, error) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	} else {
		stageErr = &StageError{Stage: stage, Err: err}
	}

	res := r.res
	res.Status = StatusFailed
	res.FinishedAt = r.engine.now().UTC()
	res.ErrorKind = services.Kind(err)
	res.ErrorStage = stage
	res.ErrorMessage = err.Error()
	r.events.add("error", stage, "", err.Error())
	res.Events = r.events.snapshot()
	r.engine.metrics.FinishRun(string(res.Status), res.FinishedAt)
	if recorded {
		r.record(ctx)
	}

	logging.ErrorWithContext(r.logger, "extraction failed", "run_failure",
		logging.String(logging.FieldStage, stage),
		logging.String("error_kind", res.ErrorKind),
		logging.Error(err),
	)
	return res, stageErr
}

func (r *run) record(ctx context.Context) {
	if r.engine.recorder == nil {
		return
	}
	// The run may have been cancelled; the ledger must still learn the outcome.
	if err := r.engine.recorder.RunFinished(context.WithoutCancel(ctx), r.res); err != nil {
		logging.WarnWithContext(r.logger, "run ledger update failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "`vidchunk runs` shows a stale status"),
		)
	}
}
