package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"vidchunk/internal/alignment"
	"vidchunk/internal/fileutil"
	"vidchunk/internal/services"
	"vidchunk/internal/transcribe"
	"vidchunk/internal/window"
)

// ManifestName is the file written next to the chunks.
const ManifestName = "manifest.json"

// Chunk is one assembled triplet. It is immutable once returned.
type Chunk struct {
	Timestamp      float64            `json:"timestamp"`
	Key            string             `json:"key"`
	ImagePath      string             `json:"image"`
	AudioPath      string             `json:"audio"`
	TranscriptPath string             `json:"transcript"`
	AudioSeconds   float64            `json:"audio_seconds"`
	ShortAudio     bool               `json:"short_audio,omitempty"`
	Outcome        transcribe.Outcome `json:"transcript_outcome"`
}

// Assembler collects chunks from concurrent workers.
type Assembler struct {
	dir    string
	mu     sync.Mutex
	chunks map[string]Chunk
}

// New constructs an Assembler writing transcript files into dir.
func New(dir string) *Assembler {
	return &Assembler{dir: dir, chunks: make(map[string]Chunk)}
}

// TranscriptPath returns where the transcript for key is written.
func (a *Assembler) TranscriptPath(key string) string {
	return filepath.Join(a.dir, alignment.Stem(key)+".txt")
}

// Add writes the transcript file for the chunk and records the triplet.
func (a *Assembler) Add(frame alignment.SampledFrame, win window.AudioWindow, tr transcribe.Transcript) (Chunk, error) {
	if frame.Key == "" || frame.Key != win.Key || frame.Key != tr.Key {
		return Chunk{}, services.Wrap(services.ErrValidation, "assemble", "add",
			fmt.Sprintf("mismatched keys frame=%q window=%q transcript=%q", frame.Key, win.Key, tr.Key), nil)
	}
	path := a.TranscriptPath(frame.Key)
	if err := fileutil.WriteAtomic(path, []byte(tr.Text), 0o644); err != nil {
		return Chunk{}, services.Wrap(services.ErrTransient, "assemble", "write transcript", filepath.Base(path), err)
	}
	chunk := Chunk{
		Timestamp:      frame.Timestamp,
		Key:            frame.Key,
		ImagePath:      frame.ImagePath,
		AudioPath:      win.Path,
		TranscriptPath: path,
		AudioSeconds:   win.Actual,
		ShortAudio:     win.Short,
		Outcome:        tr.Outcome,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, dup := a.chunks[chunk.Key]; dup {
		return Chunk{}, services.Wrap(services.ErrValidation, "assemble", "add", "duplicate chunk "+chunk.Key, nil)
	}
	a.chunks[chunk.Key] = chunk
	return chunk, nil
}

// Len returns the number of assembled chunks.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks)
}

// Chunks returns every assembled chunk in increasing timestamp order,
// independent of the order they were added in.
func (a *Assembler) Chunks() []Chunk {
	a.mu.Lock()
	out := make([]Chunk, 0, len(a.chunks))
	for _, chunk := range a.chunks {
		out = append(out, chunk)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Manifest describes a finished run for the uploader.
type Manifest struct {
	RunID         string    `json:"run_id"`
	Label         string    `json:"label"`
	Source        string    `json:"source"`
	FPS           float64   `json:"fps"`
	WindowSeconds float64   `json:"window_seconds"`
	CreatedAt     time.Time `json:"created_at"`
	Chunks        []Entry   `json:"chunks"`
}

// Entry is a manifest row. File names are relative to the manifest.
type Entry struct {
	Key        string             `json:"key"`
	Timestamp  float64            `json:"timestamp"`
	Image      string             `json:"image"`
	Audio      string             `json:"audio"`
	Transcript string             `json:"transcript"`
	Outcome    transcribe.Outcome `json:"transcript_outcome"`
	ShortAudio bool               `json:"short_audio,omitempty"`
}

// WriteManifest writes manifest.json into the assembler's directory with the
// current chunks and returns its path.
func (a *Assembler) WriteManifest(m Manifest) (string, error) {
	chunks := a.Chunks()
	m.Chunks = make([]Entry, len(chunks))
	for i, chunk := range chunks {
		m.Chunks[i] = Entry{
			Key:        chunk.Key,
			Timestamp:  chunk.Timestamp,
			Image:      a.rel(chunk.ImagePath),
			Audio:      a.rel(chunk.AudioPath),
			Transcript: a.rel(chunk.TranscriptPath),
			Outcome:    chunk.Outcome,
			ShortAudio: chunk.ShortAudio,
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(a.dir, ManifestName)
	if err := fileutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "assemble", "write manifest", "", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

func (a *Assembler) rel(path string) string {
	if rel, err := filepath.Rel(a.dir, path); err == nil {
		return rel
	}
	return path
}
