package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WAVSpec describes a PCM fixture.
type WAVSpec struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Frames is the number of sample frames per channel.
	Frames int
}

// SpeechWAV is the format the transcriber accepts.
func SpeechWAV(frames int) WAVSpec {
	return WAVSpec{SampleRate: 16000, Channels: 1, BitDepth: 16, Frames: frames}
}

// WriteWAV writes a PCM WAV fixture filled with a low-amplitude ramp.
func WriteWAV(t testing.TB, path string, spec WAVSpec) {
	t.Helper()
	if err := writeWAV(path, spec); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

func writeWAV(path string, spec WAVSpec) error {
	if spec.SampleRate <= 0 {
		spec.SampleRate = 16000
	}
	if spec.Channels <= 0 {
		spec.Channels = 1
	}
	if spec.BitDepth <= 0 {
		spec.BitDepth = 16
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data := make([]int, spec.Frames*spec.Channels)
	for i := range data {
		data[i] = (i % 64) - 32
	}
	enc := wav.NewEncoder(file, spec.SampleRate, spec.BitDepth, spec.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: spec.Channels, SampleRate: spec.SampleRate},
		Data:           data,
		SourceBitDepth: spec.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
