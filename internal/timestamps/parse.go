package timestamps

import (
	"bufio"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ptsTimePattern = regexp.MustCompile(`pts_time:\s*([0-9.]+)`)
	ordinalPattern = regexp.MustCompile(`\bn:\s*(\d+)`)
)

// maxLineBytes bounds a single showinfo line. ffmpeg prints side data on the
// same line for some codecs, which can exceed bufio's 64KiB default.
const maxLineBytes = 1 << 20

// Stamp is one frame emission event recovered from the log.
type Stamp struct {
	// Ordinal is the filter's own frame counter (the n: field), or -1 when the
	// line did not carry one.
	Ordinal int
	PTSTime float64
	Line    int
}

// Parse returns the presentation timestamps found in r, in emission order.
func Parse(r io.Reader) ([]float64, error) {
	stamps, err := ParseStamps(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(stamps))
	for i, stamp := range stamps {
		out[i] = stamp.PTSTime
	}
	return out, nil
}

// ParseStamps returns every frame emission event found in r. A read error
// returns the stamps collected so far together with the error.
func ParseStamps(r io.Reader) ([]Stamp, error) {
	if r == nil {
		return nil, nil
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var stamps []Stamp
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		stamp, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		stamp.Line = lineNo
		stamps = append(stamps, stamp)
	}
	return stamps, scanner.Err()
}

// ParseLine extracts a Stamp from one showinfo log line.
func ParseLine(line string) (Stamp, bool) {
	if !strings.Contains(line, "showinfo") || !strings.Contains(line, "pts_time:") {
		return Stamp{}, false
	}
	match := ptsTimePattern.FindStringSubmatch(line)
	if len(match) < 2 {
		return Stamp{}, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Stamp{}, false
	}

	stamp := Stamp{Ordinal: -1, PTSTime: value}
	if m := ordinalPattern.FindStringSubmatch(line); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			stamp.Ordinal = n
		}
	}
	return stamp, true
}
