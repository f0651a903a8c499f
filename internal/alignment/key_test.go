package alignment

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"
)

func TestKeyFormatting(t *testing.T) {
	tests := []struct {
		ts   float64
		want string
	}{
		{0, "000000.000"},
		{0.5, "000000.500"},
		{12.5, "000012.500"},
		{1.0005, "000001.000"},
		{9999.999, "009999.999"},
		{MaxKeySeconds, "999999.999"},
	}
	for _, tt := range tests {
		got, err := Key(tt.ts)
		if err != nil {
			t.Fatalf("Key(%v) returned error: %v", tt.ts, err)
		}
		if got != tt.want {
			t.Fatalf("Key(%v) = %q, want %q", tt.ts, got, tt.want)
		}
		if len(got) != KeyWidth {
			t.Fatalf("Key(%v) width %d", tt.ts, len(got))
		}
	}
}

func TestKeyRejectsUnencodable(t *testing.T) {
	for _, ts := range []float64{-0.001, math.NaN(), math.Inf(1), 1000000, MaxKeySeconds + 0.001} {
		if _, err := Key(ts); !errors.Is(err, ErrKeyOutOfRange) {
			t.Fatalf("Key(%v): expected ErrKeyOutOfRange, got %v", ts, err)
		}
	}
}

func TestKeyOrderMatchesNumericOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := []float64{0, 0.001, 0.5, 9.999, 10, 99.5, 100, 999.999, 1000, 9999.999}
	for i := 0; i < 500; i++ {
		values = append(values, math.Round(rng.Float64()*9999999)/1000)
	}
	sort.Float64s(values)

	keys := make([]string, len(values))
	for i, v := range values {
		key, err := Key(v)
		if err != nil {
			t.Fatalf("Key(%v) returned error: %v", v, err)
		}
		keys[i] = key
	}
	if !sort.StringsAreSorted(keys) {
		t.Fatal("expected lexicographic key order to equal numeric order")
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	value, err := ParseKey("000012.500")
	if err != nil || value != 12.5 {
		t.Fatalf("ParseKey = %v, %v", value, err)
	}
	for _, bad := range []string{"12.5", "0000012500", "00001x.500"} {
		if _, err := ParseKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if Stem("000012.500") != "frame_000012.500" {
		t.Fatalf("unexpected stem %q", Stem("000012.500"))
	}
}
