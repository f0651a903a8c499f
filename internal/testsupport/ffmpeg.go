package testsupport

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// FakeFFmpeg emulates the ffmpeg invocations the decoder issues. It writes
// placeholder images, a showinfo log and PCM windows so pipelines can run
// without the real binary.
type FakeFFmpeg struct {
	// Duration is the length of the emulated source in seconds.
	Duration float64
	// DropTimestamps removes that many trailing showinfo lines from the log.
	DropTimestamps int
	// ExtraTimestamps appends that many showinfo lines with no matching image.
	ExtraTimestamps int
	// FailStage makes every invocation for "sample", "timestamps" or "window" fail.
	FailStage string
	// FailWindowAt fails window cuts that start at the listed timestamps.
	FailWindowAt []float64
	// WindowSpec overrides the PCM format written for windows.
	WindowSpec *WAVSpec

	mu    sync.Mutex
	calls [][]string
}

// ExitError mimics a non-zero process exit.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "exit status " + strconv.Itoa(e.Code) }

// ExitCode returns the emulated status.
func (e *ExitError) ExitCode() int { return e.Code }

// Calls returns a copy of the argument lists received so far.
func (f *FakeFFmpeg) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	for i, call := range f.calls {
		out[i] = append([]string(nil), call...)
	}
	return out
}

// CallCount returns the number of invocations whose arguments contain flag.
func (f *FakeFFmpeg) CallCount(flag string) int {
	count := 0
	for _, call := range f.Calls() {
		for _, arg := range call {
			if arg == flag {
				count++
				break
			}
		}
	}
	return count
}

// Runner satisfies decode.CommandRunner.
func (f *FakeFFmpeg) Runner(ctx context.Context, stderr io.Writer, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	filter := argValue(args, "-vf")
	switch {
	case contains(args, "-vn"):
		return f.window(stderr, args)
	case argValue(args, "-f") == "null":
		if f.FailStage == "timestamps" {
			fmt.Fprintln(stderr, "Error while decoding stream #0:0: Invalid data found when processing input")
			return &ExitError{Code: 1}
		}
		f.writeShowinfo(stderr, fpsFromFilter(filter))
		return nil
	default:
		if f.FailStage == "sample" {
			fmt.Fprintln(stderr, "clip.mp4: No such file or directory")
			return &ExitError{Code: 1}
		}
		return f.sample(stderr, args, filter)
	}
}

func (f *FakeFFmpeg) frameTimes(fps float64) []float64 {
	if fps <= 0 {
		return nil
	}
	count := int(math.Floor(f.Duration * fps))
	times := make([]float64, count)
	for i := range times {
		times[i] = float64(i) / fps
	}
	return times
}

func (f *FakeFFmpeg) writeShowinfo(w io.Writer, fps float64) {
	times := f.frameTimes(fps)
	if f.DropTimestamps > 0 {
		times = times[:max(0, len(times)-f.DropTimestamps)]
	}
	for i := 0; i < f.ExtraTimestamps; i++ {
		times = append(times, f.Duration+float64(i)/fps)
	}
	fmt.Fprintf(w, "[Parsed_showinfo_1 @ 0xfake] config in time_base: 1/%s, frame_rate: %s/1\n", strconv.FormatFloat(fps, 'f', -1, 64), strconv.FormatFloat(fps, 'f', -1, 64))
	for i, ts := range times {
		fmt.Fprintf(w, "[Parsed_showinfo_1 @ 0xfake] n:%4d pts:%7d pts_time:%-8s duration:      1 fmt:yuv420p\n", i, i, strconv.FormatFloat(ts, 'f', -1, 64))
	}
}

func (f *FakeFFmpeg) sample(stderr io.Writer, args []string, filter string) error {
	pattern := args[len(args)-1]
	fps := fpsFromFilter(filter)
	times := f.frameTimes(fps)
	if err := os.MkdirAll(filepath.Dir(pattern), 0o755); err != nil {
		return err
	}
	for i := range times {
		path := strings.Replace(pattern, "%06d", fmt.Sprintf("%06d", i+1), 1)
		if err := os.WriteFile(path, []byte{0xff, 0xd8, 0xff, 0xd9}, 0o644); err != nil {
			return err
		}
	}
	if strings.Contains(filter, "showinfo") {
		f.writeShowinfo(stderr, fps)
	}
	return nil
}

func (f *FakeFFmpeg) window(stderr io.Writer, args []string) error {
	if f.FailStage == "window" {
		fmt.Fprintln(stderr, "Output file #0 does not contain any stream")
		return &ExitError{Code: 1}
	}
	start, err := strconv.ParseFloat(argValue(args, "-ss"), 64)
	if err != nil {
		return fmt.Errorf("fake ffmpeg: bad -ss: %w", err)
	}
	for _, ts := range f.FailWindowAt {
		if math.Abs(ts-start) < 1e-9 {
			fmt.Fprintf(stderr, "Error seeking to %v\n", start)
			return &ExitError{Code: 1}
		}
	}
	length, err := strconv.ParseFloat(argValue(args, "-t"), 64)
	if err != nil {
		return fmt.Errorf("fake ffmpeg: bad -t: %w", err)
	}
	actual := math.Min(length, f.Duration-start)
	if actual < 0 {
		actual = 0
	}
	spec := SpeechWAV(0)
	if f.WindowSpec != nil {
		spec = *f.WindowSpec
	}
	spec.Frames = int(math.Round(actual * float64(spec.SampleRate)))
	return writeWAV(args[len(args)-1], spec)
}

func fpsFromFilter(filter string) float64 {
	for _, part := range strings.Split(filter, ",") {
		if value, ok := strings.CutPrefix(part, "fps="); ok {
			fps, err := strconv.ParseFloat(value, 64)
			if err == nil {
				return fps
			}
		}
	}
	return 0
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func contains(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}
