package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vidchunk/internal/alignment"
	"vidchunk/internal/services"
	"vidchunk/internal/transcribe"
	"vidchunk/internal/window"
)

func triplet(dir string, ts float64, text string) (alignment.SampledFrame, window.AudioWindow, transcribe.Transcript) {
	key, _ := alignment.Key(ts)
	frame := alignment.SampledFrame{Timestamp: ts, Key: key, ImagePath: filepath.Join(dir, alignment.Stem(key)+".jpg")}
	win := window.AudioWindow{Timestamp: ts, Key: key, Duration: 0.5, Actual: 0.5, Path: filepath.Join(dir, alignment.Stem(key)+".wav")}
	tr := transcribe.Transcript{Timestamp: ts, Key: key, Text: text, Outcome: transcribe.OutcomeRecognized}
	if text == "" {
		tr.Outcome = transcribe.OutcomeSilent
	}
	return frame, win, tr
}

func TestAddWritesTranscriptFile(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)

	chunk, err := a.Add(triplet(dir, 12.5, "hello world"))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if chunk.TranscriptPath != filepath.Join(dir, "frame_000012.500.txt") {
		t.Fatalf("unexpected transcript path %q", chunk.TranscriptPath)
	}
	data, err := os.ReadFile(chunk.TranscriptPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected transcript content %q", data)
	}
}

func TestEmptyTranscriptStillWritten(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	chunk, err := a.Add(triplet(dir, 0, ""))
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	info, err := os.Stat(chunk.TranscriptPath)
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected empty transcript file, got %v, %v", info, err)
	}
}

func TestChunksSortedRegardlessOfCompletionOrder(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)

	var wg sync.WaitGroup
	for i := 19; i >= 0; i-- {
		wg.Add(1)
		go func(ts float64) {
			defer wg.Done()
			if _, err := a.Add(triplet(dir, ts, "x")); err != nil {
				t.Errorf("Add(%v) returned error: %v", ts, err)
			}
		}(float64(i) * 0.5)
	}
	wg.Wait()

	chunks := a.Chunks()
	if len(chunks) != 20 || a.Len() != 20 {
		t.Fatalf("expected 20 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i-1].Timestamp >= chunks[i].Timestamp || chunks[i-1].Key >= chunks[i].Key {
			t.Fatalf("chunks out of order at %d: %v then %v", i, chunks[i-1].Key, chunks[i].Key)
		}
	}
}

func TestAddRejectsMismatchedKeysAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	frame, win, tr := triplet(dir, 1, "x")
	win.Key = "000002.000"
	if _, err := a.Add(frame, win, tr); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := a.Add(triplet(dir, 1, "x")); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if _, err := a.Add(triplet(dir, 1, "y")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate to be rejected, got %v", err)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	for _, ts := range []float64{1, 0.5} {
		if _, err := a.Add(triplet(dir, ts, "text")); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	path, err := a.WriteManifest(Manifest{RunID: "run-1", Label: "abc123-20260101-000000", Source: "/videos/clip.mp4", FPS: 2, WindowSeconds: 0.5, CreatedAt: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("WriteManifest returned error: %v", err)
	}
	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest returned error: %v", err)
	}
	if m.RunID != "run-1" || len(m.Chunks) != 2 {
		t.Fatalf("unexpected manifest %+v", m)
	}
	first := m.Chunks[0]
	if first.Key != "000000.500" || first.Image != "frame_000000.500.jpg" || first.Audio != "frame_000000.500.wav" || first.Transcript != "frame_000000.500.txt" {
		t.Fatalf("unexpected first entry %+v", first)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files, got %v", matches)
	}
}
