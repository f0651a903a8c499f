package timestamps

import (
	"errors"
	"strings"
	"testing"
)

const showinfoLog = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':
  Duration: 00:00:10.00, start: 0.000000, bitrate: 838 kb/s
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] config in time_base: 1/2, frame_rate: 2/1
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] n:   0 pts:      0 pts_time:0       duration:      1 duration_time:0.5 fmt:yuv420p
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] n:   1 pts:      1 pts_time:0.5     duration:      1 duration_time:0.5 fmt:yuv420p
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] n:   2 pts:      2 pts_time:1       duration:      1 duration_time:0.5 fmt:yuv420p
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] color_range:tv color_space:bt709
[Parsed_showinfo_1 @ 0x55d0c8a0f6c0] n:   3 pts:      3 pts_time:1.5     duration:      1 duration_time:0.5 fmt:yuv420p
frame=    4 fps=0.0 q=-0.0 Lsize=N/A time=00:00:02.00 bitrate=N/A speed= 120x
`

func TestParseShowinfoLog(t *testing.T) {
	got, err := Parse(strings.NewReader(showinfoLog))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []float64{0, 0.5, 1, 1.5}
	if len(got) != len(want) {
		t.Fatalf("expected %d timestamps, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("timestamp %d: want %v, got %v", i, want[i], got[i])
		}
	}
}

func TestParseStampsCapturesOrdinalAndLine(t *testing.T) {
	stamps, err := ParseStamps(strings.NewReader(showinfoLog))
	if err != nil {
		t.Fatalf("ParseStamps returned error: %v", err)
	}
	if len(stamps) != 4 {
		t.Fatalf("expected 4 stamps, got %d", len(stamps))
	}
	last := stamps[3]
	if last.Ordinal != 3 || last.PTSTime != 1.5 || last.Line != 8 {
		t.Fatalf("unexpected last stamp: %+v", last)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		pts     float64
		ordinal int
	}{
		{name: "frame event", line: "[Parsed_showinfo_1 @ 0x1] n: 12 pts: 360 pts_time:12.012 duration: 1", ok: true, pts: 12.012, ordinal: 12},
		{name: "no ordinal", line: "[Parsed_showinfo_1 @ 0x1] pts_time:3.25", ok: true, pts: 3.25, ordinal: -1},
		{name: "not showinfo", line: "[mjpeg @ 0x1] pts_time:1.0", ok: false},
		{name: "missing token", line: "[Parsed_showinfo_1 @ 0x1] config in time_base: 1/2", ok: false},
		{name: "malformed value", line: "[Parsed_showinfo_1 @ 0x1] n: 1 pts_time:1.2.3", ok: false},
		{name: "negative dropped", line: "[Parsed_showinfo_1 @ 0x1] n: 0 pts_time:-0.04", ok: false},
		{name: "empty value", line: "[Parsed_showinfo_1 @ 0x1] n: 0 pts_time: duration:1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp, ok := ParseLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok: want %v, got %v (%+v)", tt.ok, ok, stamp)
			}
			if !ok {
				return
			}
			if stamp.PTSTime != tt.pts || stamp.Ordinal != tt.ordinal {
				t.Fatalf("unexpected stamp %+v", stamp)
			}
		})
	}
}

func TestMalformedLinesDesynchronizeCount(t *testing.T) {
	log := strings.Join([]string{
		"[Parsed_showinfo_1 @ 0x1] n: 0 pts_time:0",
		"[Parsed_showinfo_1 @ 0x1] n: 1 pts_time:0.5.1",
		"[Parsed_showinfo_1 @ 0x1] n: 2 pts_time:1",
	}, "\n")
	got, err := Parse(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("expected malformed line to be skipped, got %v", got)
	}
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("pipe closed")
	}
	r.sent = true
	return copy(p, "[Parsed_showinfo_1 @ 0x1] n: 0 pts_time:2.5\n"), nil
}

func TestParseStampsReturnsPartialOnReadError(t *testing.T) {
	stamps, err := ParseStamps(&failingReader{})
	if err == nil {
		t.Fatal("expected read error")
	}
	if len(stamps) != 1 || stamps[0].PTSTime != 2.5 {
		t.Fatalf("expected partial stamps, got %+v", stamps)
	}
}

func TestParseNilReader(t *testing.T) {
	got, err := Parse(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}
