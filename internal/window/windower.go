package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"vidchunk/internal/alignment"
	"vidchunk/internal/logging"
	"vidchunk/internal/services"
)

// Failure policies.
const (
	// Abort makes any window failure fatal to the run.
	Abort = "abort"
	// Skip drops the failing chunk and continues.
	Skip = "skip"
)

// shortTolerance absorbs encoder rounding when comparing clip lengths.
const shortTolerance = 0.001

// ErrEmptyWindow reports a cut that produced no audio samples.
var ErrEmptyWindow = errors.New("audio window is empty")

// Extractor cuts an audio window from a source.
type Extractor interface {
	ExtractWindow(ctx context.Context, source string, start, duration float64, dest string) error
}

// AudioWindow is one extracted clip.
type AudioWindow struct {
	Timestamp float64
	Key       string
	// Duration is the requested length; Actual is what the file contains.
	Duration float64
	Actual   float64
	Path     string
	Format   Format
	Short    bool
}

// Windower cuts one window per aligned timestamp into a fixed directory.
type Windower struct {
	extractor Extractor
	outDir    string
	logger    *slog.Logger
}

// New constructs a Windower writing clips into outDir.
func New(extractor Extractor, outDir string, logger *slog.Logger) *Windower {
	return &Windower{
		extractor: extractor,
		outDir:    outDir,
		logger:    logging.NewComponentLogger(logger, "window"),
	}
}

// Path returns where the window for key is written.
func (w *Windower) Path(key string) string {
	return filepath.Join(w.outDir, alignment.Stem(key)+".wav")
}

// Window cuts duration seconds of audio starting at ts and measures the result.
func (w *Windower) Window(ctx context.Context, source string, ts, duration float64) (AudioWindow, error) {
	if w == nil || w.extractor == nil {
		return AudioWindow{}, services.Wrap(services.ErrConfiguration, "window", "init", "windower not configured", nil)
	}
	if strings.TrimSpace(source) == "" {
		return AudioWindow{}, services.Wrap(services.ErrConfiguration, "window", "validate", "source path required", nil)
	}
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return AudioWindow{}, services.Wrap(services.ErrConfiguration, "window", "validate", fmt.Sprintf("duration must be > 0, got %v", duration), nil)
	}
	key, err := alignment.Key(ts)
	if err != nil {
		return AudioWindow{}, services.Wrap(services.ErrValidation, "window", "encode key", "", err)
	}

	win := AudioWindow{Timestamp: ts, Key: key, Duration: duration, Path: w.Path(key)}
	if err := w.extractor.ExtractWindow(ctx, source, ts, duration, win.Path); err != nil {
		return win, err
	}

	info, err := Probe(win.Path)
	if err != nil {
		return win, services.Wrap(services.ErrExternalTool, "window", "measure", filepath.Base(win.Path), err)
	}
	win.Format = info.Format
	win.Actual = info.Seconds()
	if info.Frames == 0 {
		return win, services.Wrap(services.ErrExternalTool, "window", "measure", filepath.Base(win.Path), ErrEmptyWindow)
	}
	if win.Actual < duration-shortTolerance {
		win.Short = true
		w.logger.Debug("audio window shorter than requested",
			logging.String(logging.FieldChunkKey, key),
			logging.Float64("requested_seconds", duration),
			logging.Float64("actual_seconds", win.Actual),
		)
	}
	return win, nil
}
