package decode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"vidchunk/internal/logging"
	"vidchunk/internal/services"
	"vidchunk/internal/timestamps"
)

// RawFramePattern is the printf-style name ffmpeg gives sampled images before
// alignment renames them.
const RawFramePattern = "frame_%06d"

// CommandRunner executes an external tool. Anything the tool writes to stderr
// must be copied to the stderr writer.
type CommandRunner func(ctx context.Context, stderr io.Writer, name string, args ...string) error

// Sampling is the outcome of a single decode pass.
type Sampling struct {
	Frames     []string
	Timestamps []float64
}

// Decoder runs ffmpeg against a local source.
type Decoder struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     CommandRunner
}

// Option customizes a Decoder.
type Option func(*Decoder)

// WithLogger sets the decoder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logging.NewComponentLogger(logger, "decode")
	}
}

// WithTimeout bounds every tool invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Decoder) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(runner CommandRunner) Option {
	return func(d *Decoder) {
		if runner != nil {
			d.run = runner
		}
	}
}

// New constructs a Decoder for the given ffmpeg binary.
func New(binary string, opts ...Option) *Decoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	d := &Decoder{
		binary: binary,
		logger: logging.NewComponentLogger(nil, "decode"),
		run:    defaultCommandRunner,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Binary returns the ffmpeg executable the decoder invokes.
func (d *Decoder) Binary() string {
	return d.binary
}

// SampleFrames writes one image per sampled frame into outDir and returns the
// sorted listing. ext selects the image container (jpg or png).
func (d *Decoder) SampleFrames(ctx context.Context, source string, fps float64, outDir, ext string) ([]string, error) {
	if err := validateSampling(source, fps, outDir); err != nil {
		return nil, err
	}
	args := sampleFramesArgs(source, fps, outDir, ext, false)
	if _, err := d.invoke(ctx, StageSample, args, false); err != nil {
		return nil, err
	}
	return ListFrames(outDir, ext)
}

// RecoverTimestamps runs a separate decode pass that discards the images and
// parses the showinfo log into presentation timestamps.
func (d *Decoder) RecoverTimestamps(ctx context.Context, source string, fps float64) ([]float64, error) {
	if err := validateSampling(source, fps, "-"); err != nil {
		return nil, err
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-i", source,
		"-vf", filterChain(fps, true),
		"-f", "null", "-",
	}
	stderr, err := d.invoke(ctx, StageTimestamps, args, true)
	if err != nil {
		return nil, err
	}
	stamps, err := timestamps.Parse(strings.NewReader(stderr))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StageTimestamps, "parse showinfo", "", err)
	}
	return stamps, nil
}

// Sample writes the sampled images and recovers their timestamps from the same
// ffmpeg process.
func (d *Decoder) Sample(ctx context.Context, source string, fps float64, outDir, ext string) (Sampling, error) {
	if err := validateSampling(source, fps, outDir); err != nil {
		return Sampling{}, err
	}
	args := sampleFramesArgs(source, fps, outDir, ext, true)
	stderr, err := d.invoke(ctx, StageSample, args, true)
	if err != nil {
		return Sampling{}, err
	}
	stamps, err := timestamps.Parse(strings.NewReader(stderr))
	if err != nil {
		return Sampling{}, services.Wrap(services.ErrExternalTool, StageSample, "parse showinfo", "", err)
	}
	frames, err := ListFrames(outDir, ext)
	if err != nil {
		return Sampling{}, err
	}
	return Sampling{Frames: frames, Timestamps: stamps}, nil
}

// ExtractWindow cuts duration seconds of audio starting at start into dest as
// mono 16-bit PCM at 16 kHz.
func (d *Decoder) ExtractWindow(ctx context.Context, source string, start, duration float64, dest string) error {
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrConfiguration, StageWindow, "validate", "source path required", nil)
	}
	if start < 0 || math.IsNaN(start) || math.IsInf(start, 0) {
		return services.Wrap(services.ErrConfiguration, StageWindow, "validate", fmt.Sprintf("start must be >= 0, got %v", start), nil)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return services.Wrap(services.ErrConfiguration, StageWindow, "validate", fmt.Sprintf("duration must be > 0, got %v", duration), nil)
	}
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrConfiguration, StageWindow, "validate", "destination path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, StageWindow, "ensure output dir", "", err)
	}

	args := windowArgs(source, start, duration, dest)
	_, err := d.invoke(ctx, StageWindow, args, false)
	return err
}

func (d *Decoder) invoke(ctx context.Context, stage string, args []string, capture bool) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	d.logger.Debug("running ffmpeg",
		logging.String(logging.FieldStage, stage),
		logging.String("command", d.binary+" "+strings.Join(args, " ")),
	)
	started := time.Now()
	err := d.run(ctx, &stderr, d.binary, args...)
	if err != nil {
		toolErr := newToolError(stage, d.binary, args, stderr.String(), err)
		marker := services.ErrExternalTool
		if ctx.Err() == context.DeadlineExceeded {
			marker = services.ErrTimeout
		}
		return "", services.Wrap(marker, stage, "", "", toolErr)
	}
	d.logger.Debug("ffmpeg finished",
		logging.String(logging.FieldStage, stage),
		logging.Duration("elapsed", time.Since(started)),
	)
	if !capture {
		return "", nil
	}
	return stderr.String(), nil
}

// ListFrames returns the raw sampled images in outDir in lexicographic order.
// Images already renamed to a timestamp key are not listed.
func ListFrames(outDir, ext string) ([]string, error) {
	ext = normalizeExt(ext)
	matches, err := filepath.Glob(filepath.Join(outDir, "frame_*."+ext))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	frames := matches[:0]
	for _, path := range matches {
		stem := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "frame_"), "."+ext)
		if isDigits(stem) {
			frames = append(frames, path)
		}
	}
	sort.Strings(frames)
	return frames, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateSampling(source string, fps float64, outDir string) error {
	if strings.TrimSpace(source) == "" {
		return services.Wrap(services.ErrConfiguration, StageSample, "validate", "source path required", nil)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return services.Wrap(services.ErrConfiguration, StageSample, "validate", fmt.Sprintf("fps must be > 0, got %v", fps), nil)
	}
	if strings.TrimSpace(outDir) == "" {
		return services.Wrap(services.ErrConfiguration, StageSample, "validate", "output directory required", nil)
	}
	if outDir == "-" {
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, StageSample, "ensure output dir", "", err)
	}
	return nil
}

func sampleFramesArgs(source string, fps float64, outDir, ext string, showinfo bool) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-vf", filterChain(fps, showinfo),
		"-vsync", "vfr",
		filepath.Join(outDir, RawFramePattern+"."+normalizeExt(ext)),
	}
}

func windowArgs(source string, start, duration float64, dest string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		dest,
	}
}

func filterChain(fps float64, showinfo bool) string {
	chain := "fps=" + strconv.FormatFloat(fps, 'f', -1, 64)
	if showinfo {
		chain += ",showinfo"
	}
	return chain
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" || ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func defaultCommandRunner(ctx context.Context, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	return cmd.Run()
}
