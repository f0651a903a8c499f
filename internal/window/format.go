package window

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Format describes the PCM layout of a WAV file.
type Format struct {
	Channels   int `json:"channels"`
	BitDepth   int `json:"bit_depth"`
	SampleRate int `json:"sample_rate"`
}

// Speech is the only layout the transcriber accepts.
var Speech = Format{Channels: 1, BitDepth: 16, SampleRate: 16000}

func (f Format) String() string {
	return fmt.Sprintf("%dch/%dbit/%dHz", f.Channels, f.BitDepth, f.SampleRate)
}

// BytesPerFrame returns the size of one sample frame across all channels.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// Info is the measured content of a WAV file.
type Info struct {
	Format Format
	// Frames is the number of sample frames in the data chunk.
	Frames int64
}

// Duration returns the playable length of the clip.
func (i Info) Duration() time.Duration {
	if i.Format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.Frames) / float64(i.Format.SampleRate) * float64(time.Second))
}

// Seconds returns the playable length of the clip in seconds.
func (i Info) Seconds() float64 {
	if i.Format.SampleRate <= 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.Format.SampleRate)
}

// ErrNotWAV reports a file that is not a readable PCM WAV.
var ErrNotWAV = errors.New("not a PCM wav file")

// Probe reads the header of the WAV at path and counts its sample frames.
func Probe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrNotWAV, path, err)
	}
	format := Format{
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		SampleRate: int(dec.SampleRate),
	}
	info := Info{Format: format}
	if bpf := format.BytesPerFrame(); bpf > 0 {
		info.Frames = dec.PCMLen() / int64(bpf)
	}
	return info, nil
}
