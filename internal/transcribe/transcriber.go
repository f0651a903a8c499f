package transcribe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"vidchunk/internal/logging"
	"vidchunk/internal/services"
	"vidchunk/internal/window"
)

// DefaultBlockFrames is the number of sample frames fed to the recognizer per call.
const DefaultBlockFrames = 4000

// State is the model lifecycle of a Transcriber.
type State int32

const (
	Unloaded State = iota
	ModelLoaded
	Degraded
	Closed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case ModelLoaded:
		return "model_loaded"
	case Degraded:
		return "degraded"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome classifies how a transcript was produced.
type Outcome string

const (
	OutcomeRecognized     Outcome = "recognized"
	OutcomeSilent         Outcome = "silent"
	OutcomeDegraded       Outcome = "degraded"
	OutcomeFormatMismatch Outcome = "format_mismatch"
	OutcomeFailed         Outcome = "failed"
)

// Transcript is the text recognized in one window. Text may be empty.
type Transcript struct {
	Timestamp float64
	Key       string
	Text      string
	Outcome   Outcome
}

// Transcriber owns the shared model for one run.
type Transcriber struct {
	engine      Engine
	modelDir    string
	blockFrames int
	logger      *slog.Logger

	once    sync.Once
	model   Model
	reason  string
	state   atomic.Int32
	closeMu sync.RWMutex
}

// Option customizes a Transcriber.
type Option func(*Transcriber)

// WithBlockFrames overrides the streaming block size.
func WithBlockFrames(frames int) Option {
	return func(t *Transcriber) {
		if frames > 0 {
			t.blockFrames = frames
		}
	}
}

// WithLogger sets the transcriber's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		t.logger = logging.NewComponentLogger(logger, "transcribe")
	}
}

// New constructs a Transcriber. A nil engine yields a transcriber that is
// degraded from the start.
func New(engine Engine, modelDir string, opts ...Option) *Transcriber {
	t := &Transcriber{
		engine:      engine,
		modelDir:    strings.TrimSpace(modelDir),
		blockFrames: DefaultBlockFrames,
		logger:      logging.NewComponentLogger(nil, "transcribe"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current lifecycle state.
func (t *Transcriber) State() State {
	return State(t.state.Load())
}

// Degraded reports whether every transcript will be empty.
func (t *Transcriber) Degraded() bool {
	return t.State() == Degraded
}

// DegradedReason explains why the model is unavailable.
func (t *Transcriber) DegradedReason() string {
	if !t.Degraded() {
		return ""
	}
	return t.reason
}

// Load attempts to load the model once. Later calls return the settled state.
func (t *Transcriber) Load() State {
	t.once.Do(func() {
		model, reason := t.loadModel()
		if model == nil {
			t.reason = reason
			t.state.Store(int32(Degraded))
			logging.WarnWithContext(t.logger, "speech recognition unavailable; transcripts will be empty", "transcription_degraded",
				logging.String("reason", reason),
				logging.String("model_dir", t.modelDir),
				logging.String(logging.FieldErrorHint, "install a model directory and build with -tags vosk"),
				logging.String(logging.FieldImpact, "every chunk gets an empty transcript"),
			)
			return
		}
		t.model = model
		t.state.Store(int32(ModelLoaded))
		t.logger.Info("speech model loaded", logging.String("engine", t.engine.Name()), logging.String("model_dir", t.modelDir))
	})
	return t.State()
}

func (t *Transcriber) loadModel() (model Model, reason string) {
	if t.engine == nil {
		return nil, "transcription disabled"
	}
	if t.modelDir == "" {
		return nil, "model directory not configured"
	}
	info, err := os.Stat(t.modelDir)
	if err != nil {
		return nil, fmt.Sprintf("model directory: %v", err)
	}
	if !info.IsDir() {
		return nil, "model path is not a directory"
	}
	defer func() {
		if r := recover(); r != nil {
			model, reason = nil, fmt.Sprintf("model load panicked: %v", r)
		}
	}()
	model, err = t.engine.Load(t.modelDir)
	if err != nil {
		return nil, err.Error()
	}
	if model == nil {
		return nil, "engine returned no model"
	}
	return model, ""
}

// Transcribe recognizes speech in win. It never fails: every problem yields
// an empty transcript with an Outcome describing why.
func (t *Transcriber) Transcribe(ctx context.Context, win window.AudioWindow) Transcript {
	out := Transcript{Timestamp: win.Timestamp, Key: win.Key}
	logger := logging.WithContext(ctx, t.logger)

	if t.Load() != ModelLoaded {
		out.Outcome = OutcomeDegraded
		return out
	}

	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.State() != ModelLoaded {
		out.Outcome = OutcomeDegraded
		return out
	}

	text, err := t.recognize(ctx, win.Path)
	switch {
	case errors.Is(err, errFormatMismatch):
		logging.WarnWithContext(logger, "audio window format mismatch; transcript left empty", "transcript_format_mismatch",
			logging.String(logging.FieldChunkKey, win.Key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "chunk transcript is empty"),
		)
		out.Outcome = OutcomeFormatMismatch
	case err != nil:
		logging.WarnWithContext(logger, "transcription failed; transcript left empty", "transcript_failed",
			logging.String(logging.FieldChunkKey, win.Key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "chunk transcript is empty"),
		)
		out.Outcome = OutcomeFailed
	case strings.TrimSpace(text) == "":
		out.Text = text
		out.Outcome = OutcomeSilent
	default:
		out.Text = text
		out.Outcome = OutcomeRecognized
	}
	return out
}

var errFormatMismatch = errors.New("audio format mismatch")

func (t *Transcriber) recognize(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", services.Wrap(services.ErrTransient, "transcribe", "recognize", "engine panicked", fmt.Errorf("%v", r))
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return "", fmt.Errorf("%w: not a PCM wav file", errFormatMismatch)
	}
	got := window.Format{Channels: int(dec.NumChans), BitDepth: int(dec.BitDepth), SampleRate: int(dec.SampleRate)}
	if got != window.Speech {
		return "", fmt.Errorf("%w: got %s, want %s", errFormatMismatch, got, window.Speech)
	}
	if err := dec.FwdToPCM(); err != nil {
		return "", fmt.Errorf("%w: %v", errFormatMismatch, err)
	}

	rec, err := t.model.NewRecognizer(float64(got.SampleRate))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "transcribe", "new recognizer", "", err)
	}
	defer rec.Close()

	// Every fragment counts, empty ones included, so silent stretches keep
	// their separator in the joined text.
	var fragments []string

	samples := &audio.IntBuffer{Data: make([]int, t.blockFrames*got.Channels)}
	pcm := make([]byte, len(samples.Data)*2)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := dec.PCMBuffer(samples)
		if n > 0 {
			for i, v := range samples.Data[:n] {
				binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(v)))
			}
			ready, err := rec.AcceptWaveform(pcm[:2*n])
			if err != nil {
				return "", services.Wrap(services.ErrTransient, "transcribe", "accept waveform", "", err)
			}
			if ready {
				fragments = append(fragments, rec.Result())
			}
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", readErr
		}
		if n == 0 || errors.Is(readErr, io.EOF) {
			break
		}
	}
	fragments = append(fragments, rec.FinalResult())
	return strings.Join(fragments, " "), nil
}

// Close releases the shared model. Windows still being recognized finish first.
func (t *Transcriber) Close() error {
	t.once.Do(func() {})
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.State() == ModelLoaded && t.model != nil {
		t.model.Close()
		t.model = nil
	}
	t.state.Store(int32(Closed))
	return nil
}
