// Package metrics exposes extraction counters through a private Prometheus
// registry. Runs are short-lived CLI invocations, so the registry is exported
// by writing a node_exporter textfile rather than serving /metrics.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vidchunk"

// Collector records per-run extraction metrics.
type Collector struct {
	registry      *prometheus.Registry
	runs          *prometheus.CounterVec
	chunks        *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	lastRun       prometheus.Gauge
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Extraction runs by final status.",
		}, []string{"status"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Assembled chunks by transcript outcome.",
		}, []string{"transcript_outcome"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Items dropped during a run by kind.",
		}, []string{"kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	c.registry.MustRegister(c.runs, c.chunks, c.dropped, c.stageDuration, c.lastRun)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveStage records how long a stage took.
func (c *Collector) ObserveStage(stage string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// AddChunk counts one assembled chunk.
func (c *Collector) AddChunk(outcome string) {
	if c == nil {
		return
	}
	c.chunks.WithLabelValues(outcome).Inc()
}

// AddDropped counts items dropped for the given reason.
func (c *Collector) AddDropped(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.dropped.WithLabelValues(kind).Add(float64(n))
}

// FinishRun counts a finished run.
func (c *Collector) FinishRun(status string, at time.Time) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(status).Inc()
	c.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in Prometheus text format to path. An
// empty path is a no-op.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics textfile dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
