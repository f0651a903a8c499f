package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.AddChunk("recognized")
	c.AddChunk("recognized")
	c.AddChunk("degraded")
	c.AddDropped("frame", 2)
	c.AddDropped("timestamp", 0)
	c.FinishRun("completed", time.Unix(1700000000, 0))
	c.ObserveStage("sample", 250*time.Millisecond)

	if got := testutil.ToFloat64(c.chunks.WithLabelValues("recognized")); got != 2 {
		t.Fatalf("expected 2 recognized chunks, got %v", got)
	}
	if got := testutil.ToFloat64(c.dropped.WithLabelValues("frame")); got != 2 {
		t.Fatalf("expected 2 dropped frames, got %v", got)
	}
	if got := testutil.ToFloat64(c.lastRun); got != 1700000000 {
		t.Fatalf("unexpected last run gauge %v", got)
	}
	if got := testutil.CollectAndCount(c.stageDuration); got != 1 {
		t.Fatalf("expected one stage series, got %d", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.FinishRun("failed", time.Now())
	path := filepath.Join(t.TempDir(), "textfile", "vidchunk.prom")

	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `vidchunk_runs_total{status="failed"} 1`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}
	if err := c.WriteTextfile(""); err != nil {
		t.Fatalf("empty path should be a no-op, got %v", err)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.AddChunk("x")
	c.AddDropped("frame", 1)
	c.ObserveStage("sample", time.Second)
	c.FinishRun("completed", time.Now())
	if err := c.WriteTextfile("/nonexistent/x.prom"); err != nil {
		t.Fatalf("nil collector should not write, got %v", err)
	}
}
