package extraction

import (
	"fmt"
	"time"

	"vidchunk/internal/dataset"
	"vidchunk/internal/services"
)

// Stage names used in errors, events and metrics.
const (
	StageValidate   = "validate"
	StageInspect    = "inspect"
	StageSample     = "sample"
	StageTimestamps = "timestamps"
	StageAlign      = "align"
	StageWindow     = "window"
	StageTranscribe = "transcribe"
	StageAssemble   = "assemble"
)

// Status is the lifecycle of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one extraction. Zero values fall back to configuration.
type Request struct {
	Source        string
	OutputDir     string
	FPS           float64
	WindowSeconds float64
	Workers       int
}

// Report summarizes how complete a run's dataset is. MaxSamples is
// floor(duration*fps)+1, or 0 when the source duration is unknown.
type Report struct {
	FramesSampled         int    `json:"frames_sampled"`
	TimestampsRecovered   int    `json:"timestamps_recovered"`
	Aligned               int    `json:"aligned"`
	DroppedFrames         int    `json:"dropped_frames"`
	DroppedTimestamps     int    `json:"dropped_timestamps"`
	WindowsFailed         int    `json:"windows_failed"`
	ShortWindows          int    `json:"short_windows"`
	EmptyTranscripts      int    `json:"empty_transcripts"`
	SamplingFailed        bool   `json:"sampling_failed"`
	MaxSamples            int    `json:"max_samples"`
	TranscriptionDegraded bool   `json:"transcription_degraded"`
	DegradedReason        string `json:"degraded_reason,omitempty"`
}

// Complete reports whether every sampled instant became a chunk.
func (r Report) Complete() bool {
	return !r.SamplingFailed && r.DroppedFrames == 0 && r.DroppedTimestamps == 0 && r.WindowsFailed == 0
}

// Event is one entry in a run's log.
type Event struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Stage   string    `json:"stage"`
	Key     string    `json:"key,omitempty"`
	Message string    `json:"message"`
}

// Result is everything a run produced. It is owned by the caller.
type Result struct {
	RunID         string          `json:"run_id"`
	Label         string          `json:"label"`
	Source        string          `json:"source"`
	OutputDir     string          `json:"output_dir"`
	ManifestPath  string          `json:"manifest_path,omitempty"`
	FPS           float64         `json:"fps"`
	WindowSeconds float64         `json:"window_seconds"`
	Duration      float64         `json:"duration_seconds"`
	Status        Status          `json:"status"`
	Chunks        []dataset.Chunk `json:"chunks"`
	Report        Report          `json:"report"`
	Events        []Event         `json:"events"`
	ErrorKind     string          `json:"error_kind,omitempty"`
	ErrorStage    string          `json:"error_stage,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// Elapsed returns the wall-clock duration of the run.
func (r *Result) Elapsed() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageError tags a fatal run error with the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if services.Marked(e.Err) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Progress is reported as chunks complete.
type Progress struct {
	Stage string
	Key   string
	Done  int
	Total int
}
