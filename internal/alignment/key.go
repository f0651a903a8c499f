package alignment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// KeyWidth is the fixed character width of a canonical timestamp key.
const KeyWidth = 10

// MaxKeySeconds is the largest timestamp a key can encode. Wider values would
// overflow the field and break lexicographic ordering.
const MaxKeySeconds = 999999.999

// ErrKeyOutOfRange reports a timestamp that cannot be encoded as a key.
var ErrKeyOutOfRange = errors.New("timestamp outside key range")

// Key formats ts as a zero-padded, three-decimal, fixed-width string such as
// "000012.500". For every pair of encodable timestamps, comparing keys as
// strings gives the same order as comparing the rounded timestamps.
func Key(ts float64) (string, error) {
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts < 0 {
		return "", fmt.Errorf("%w: %v", ErrKeyOutOfRange, ts)
	}
	key := fmt.Sprintf("%0*.3f", KeyWidth, ts)
	if len(key) != KeyWidth {
		return "", fmt.Errorf("%w: %v", ErrKeyOutOfRange, ts)
	}
	return key, nil
}

// ParseKey converts a canonical key back to seconds.
func ParseKey(key string) (float64, error) {
	if len(key) != KeyWidth || key[KeyWidth-4] != '.' {
		return 0, fmt.Errorf("alignment: malformed key %q", key)
	}
	value, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return 0, fmt.Errorf("alignment: malformed key %q: %w", key, err)
	}
	return value, nil
}

// Stem returns the shared basename for every artifact of the chunk keyed by key.
func Stem(key string) string {
	return "frame_" + key
}
