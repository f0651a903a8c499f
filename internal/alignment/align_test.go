package alignment

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vidchunk/internal/services"
)

func framePaths(dir string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, "frame_"+pad(i+1)+".jpg")
	}
	return paths
}

func pad(n int) string {
	s := "000000"
	digits := []byte(s)
	for i := len(digits) - 1; n > 0 && i >= 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}

func TestAlignPairsPositionally(t *testing.T) {
	paths := framePaths("/work", 3)
	shuffled := []string{paths[2], paths[0], paths[1]}

	out, err := Align(shuffled, []float64{0, 0.5, 1}, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if len(out.Frames) != 3 || out.Mismatch() {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	for i, frame := range out.Frames {
		if frame.ImagePath != paths[i] || frame.Index != i {
			t.Fatalf("frame %d paired with %q", i, frame.ImagePath)
		}
	}
	if out.Frames[1].Key != "000000.500" {
		t.Fatalf("unexpected key %q", out.Frames[1].Key)
	}
	if shuffled[0] != paths[2] {
		t.Fatal("Align must not reorder the caller's slice")
	}
}

func TestAlignTruncatesOneFewerTimestamp(t *testing.T) {
	paths := framePaths("/work", 20)
	stamps := make([]float64, 19)
	for i := range stamps {
		stamps[i] = float64(i) * 0.5
	}

	out, err := Align(paths, stamps, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if len(out.Frames) != 19 {
		t.Fatalf("expected 19 chunks, got %d", len(out.Frames))
	}
	if !reflect.DeepEqual(out.DroppedFrames, []string{paths[19]}) {
		t.Fatalf("expected the last frame to be dropped, got %v", out.DroppedFrames)
	}
	if len(out.DroppedTimestamps) != 0 {
		t.Fatalf("unexpected dropped timestamps %v", out.DroppedTimestamps)
	}
}

func TestAlignTruncatesSurplusTimestamps(t *testing.T) {
	out, err := Align(framePaths("/work", 2), []float64{0, 0.5, 1, 1.5}, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if len(out.Frames) != 2 || !reflect.DeepEqual(out.DroppedTimestamps, []float64{1, 1.5}) {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestAlignStrictRejectsMismatch(t *testing.T) {
	_, err := Align(framePaths("/work", 3), []float64{0, 0.5}, Strict)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAlignIsIdempotent(t *testing.T) {
	paths := framePaths("/work", 5)
	stamps := []float64{0, 0.333, 0.667, 1, 1.333}
	first, err := Align(paths, stamps, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	second, err := Align(paths, stamps, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical outcomes, got %+v vs %+v", first, second)
	}
}

func TestAlignRejectsKeyCollisions(t *testing.T) {
	_, err := Align(framePaths("/work", 2), []float64{1.0001, 1.0002}, Truncate)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected collision to be rejected, got %v", err)
	}
	_, err = Align(framePaths("/work", 1), []float64{-1}, Truncate)
	if !errors.Is(err, ErrKeyOutOfRange) {
		t.Fatalf("expected key range error, got %v", err)
	}
}

func TestAlignEmptyInputs(t *testing.T) {
	out, err := Align(nil, nil, Strict)
	if err != nil || len(out.Frames) != 0 {
		t.Fatalf("expected empty outcome, got %+v, %v", out, err)
	}
}

func TestApplyRenamesToCanonicalNames(t *testing.T) {
	dir := t.TempDir()
	paths := framePaths(dir, 3)
	for _, p := range paths {
		if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, err := Align(paths[:3], []float64{0, 0.5, 1}, Truncate)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}

	renamed, err := Apply(out.Frames, dir)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	want := filepath.Join(dir, "frame_000000.500.jpg")
	if renamed[1].ImagePath != want {
		t.Fatalf("expected %q, got %q", want, renamed[1].ImagePath)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(paths[1]); !os.IsNotExist(err) {
		t.Fatalf("expected raw frame to be gone, got %v", err)
	}

	again, err := Apply(renamed, dir)
	if err != nil {
		t.Fatalf("second Apply returned error: %v", err)
	}
	if !reflect.DeepEqual(again, renamed) {
		t.Fatal("expected re-applying canonical frames to be a no-op")
	}
}

func TestApplyRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "frame_000001.jpg")
	if err := os.WriteFile(raw, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frame_000000.000.jpg"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Apply([]SampledFrame{{Key: "000000.000", ImagePath: raw}}, dir)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame_000009.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveDropped([]string{path, filepath.Join(dir, "missing.jpg")}); err != nil {
		t.Fatalf("RemoveDropped returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected dropped frame to be removed")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(" STRICT "); err != nil || p != Strict {
		t.Fatalf("ParsePolicy strict = %v, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != Truncate {
		t.Fatalf("ParsePolicy empty = %v, %v", p, err)
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
