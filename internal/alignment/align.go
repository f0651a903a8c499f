package alignment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vidchunk/internal/fileutil"
	"vidchunk/internal/services"
)

// Policy selects how a count mismatch between frames and timestamps is handled.
type Policy string

const (
	// Truncate pairs up to the shorter sequence and drops the surplus.
	Truncate Policy = "truncate"
	// Strict rejects any count mismatch.
	Strict Policy = "strict"
)

// ParsePolicy maps a configuration value to a Policy. Empty selects Truncate.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", Truncate:
		return Truncate, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("alignment: unknown policy %q", value)
	}
}

// SampledFrame is one aligned frame. Index is the frame's position in the raw
// listing; Key is its identity from here on.
type SampledFrame struct {
	Index     int
	Timestamp float64
	Key       string
	ImagePath string
}

// Outcome reports how the two sequences were reconciled.
type Outcome struct {
	Frames            []SampledFrame
	FramesSeen        int
	TimestampsSeen    int
	DroppedFrames     []string
	DroppedTimestamps []float64
}

// Mismatch reports whether either sequence had a surplus.
func (o Outcome) Mismatch() bool {
	return o.FramesSeen != o.TimestampsSeen
}

// Align pairs the lexicographically sorted frame listing with the timestamp
// sequence positionally. The input slices are not modified. Calling Align
// again with the same inputs yields the same pairing and keys.
func Align(framePaths []string, timestamps []float64, policy Policy) (Outcome, error) {
	sorted := append([]string(nil), framePaths...)
	sort.Strings(sorted)

	out := Outcome{FramesSeen: len(sorted), TimestampsSeen: len(timestamps)}
	if policy == Strict && out.Mismatch() {
		return out, services.Wrap(services.ErrValidation, "align", "reconcile",
			fmt.Sprintf("%d frames but %d timestamps", len(sorted), len(timestamps)), nil)
	}

	n := min(len(sorted), len(timestamps))
	out.Frames = make([]SampledFrame, 0, n)
	seen := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key, err := Key(timestamps[i])
		if err != nil {
			return out, services.Wrap(services.ErrValidation, "align", "encode key", fmt.Sprintf("frame %d", i), err)
		}
		if prev, dup := seen[key]; dup {
			return out, services.Wrap(services.ErrValidation, "align", "encode key",
				fmt.Sprintf("frames %d and %d share key %s", prev, i, key), nil)
		}
		seen[key] = i
		out.Frames = append(out.Frames, SampledFrame{
			Index:     i,
			Timestamp: timestamps[i],
			Key:       key,
			ImagePath: sorted[i],
		})
	}
	if len(sorted) > n {
		out.DroppedFrames = sorted[n:]
	}
	if len(timestamps) > n {
		out.DroppedTimestamps = append([]float64(nil), timestamps[n:]...)
	}
	return out, nil
}

// CanonicalPath returns the renamed location of frame inside dir.
func CanonicalPath(dir string, frame SampledFrame) string {
	ext := filepath.Ext(frame.ImagePath)
	return filepath.Join(dir, Stem(frame.Key)+ext)
}

// Apply renames every aligned image to its canonical name inside dir and
// returns the frames with ImagePath updated. The rename is destructive. A
// frame already at its canonical path is left in place.
func Apply(frames []SampledFrame, dir string) ([]SampledFrame, error) {
	out := make([]SampledFrame, len(frames))
	for i, frame := range frames {
		target := CanonicalPath(dir, frame)
		if frame.ImagePath != target {
			if _, err := os.Stat(target); err == nil {
				return out[:i], services.Wrap(services.ErrValidation, "align", "rename",
					fmt.Sprintf("%s already exists", filepath.Base(target)), nil)
			} else if !errors.Is(err, os.ErrNotExist) {
				return out[:i], services.Wrap(services.ErrTransient, "align", "rename", "", err)
			}
			if err := os.Rename(frame.ImagePath, target); err != nil {
				return out[:i], services.Wrap(services.ErrTransient, "align", "rename", filepath.Base(frame.ImagePath), err)
			}
		}
		frame.ImagePath = target
		out[i] = frame
	}
	return out, nil
}

// RemoveDropped deletes surplus images that were not paired with a timestamp.
func RemoveDropped(paths []string) error {
	return fileutil.RemoveFiles(paths...)
}
