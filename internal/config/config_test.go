package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidchunk/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "vidchunk", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Extraction.FPS != 2 {
		t.Fatalf("unexpected fps default: %v", cfg.Extraction.FPS)
	}
	if cfg.Extraction.WindowSeconds != 0.5 {
		t.Fatalf("unexpected window default: %v", cfg.Extraction.WindowSeconds)
	}
	if !cfg.Extraction.SinglePass {
		t.Fatal("expected single pass decoding by default")
	}
	if cfg.Extraction.AlignmentPolicy != config.AlignmentTruncate {
		t.Fatalf("unexpected alignment policy: %q", cfg.Extraction.AlignmentPolicy)
	}
	if cfg.Extraction.WindowFailure != config.WindowFailureAbort {
		t.Fatalf("unexpected window failure policy: %q", cfg.Extraction.WindowFailure)
	}
	if cfg.Transcription.BlockFrames != 4000 {
		t.Fatalf("unexpected block frames: %d", cfg.Transcription.BlockFrames)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool names: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.ToolTimeout() != 0 {
		t.Fatalf("expected no tool timeout by default, got %v", cfg.ToolTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.RunStorePath() != filepath.Join(cfg.Paths.StateDir, "runs.db") {
		t.Fatalf("unexpected run store path: %q", cfg.RunStorePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vidchunk.toml")

	type payload struct {
		Extraction struct {
			FPS             float64 `toml:"fps"`
			WindowSeconds   float64 `toml:"window_seconds"`
			Workers         int     `toml:"workers"`
			AlignmentPolicy string  `toml:"alignment_policy"`
		} `toml:"extraction"`
		Tools struct {
			TimeoutSeconds int `toml:"timeout_seconds"`
		} `toml:"tools"`
		Transcription struct {
			Language string `toml:"language"`
		} `toml:"transcription"`
	}
	custom := payload{}
	custom.Extraction.FPS = 3
	custom.Extraction.WindowSeconds = 1.25
	custom.Extraction.Workers = 4
	custom.Extraction.AlignmentPolicy = " STRICT "
	custom.Tools.TimeoutSeconds = 90
	custom.Transcription.Language = "en-us"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Extraction.FPS != 3 || cfg.Extraction.WindowSeconds != 1.25 || cfg.Extraction.Workers != 4 {
		t.Fatalf("unexpected extraction overrides: %+v", cfg.Extraction)
	}
	if cfg.Extraction.AlignmentPolicy != config.AlignmentStrict {
		t.Fatalf("expected normalized strict policy, got %q", cfg.Extraction.AlignmentPolicy)
	}
	if !cfg.Extraction.SinglePass {
		t.Fatal("expected omitted single_pass to keep its default")
	}
	if cfg.ToolTimeout() != 90*time.Second {
		t.Fatalf("unexpected tool timeout: %v", cfg.ToolTimeout())
	}
	if cfg.Transcription.Language != "en-US" {
		t.Fatalf("expected canonical language tag, got %q", cfg.Transcription.Language)
	}
}

func TestEnvOverridesToolsAndModel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	modelDir := t.TempDir()
	t.Setenv("VIDCHUNK_MODEL_DIR", modelDir)
	t.Setenv("VIDCHUNK_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcription.ModelDir != modelDir {
		t.Fatalf("expected model dir from env, got %q", cfg.Transcription.ModelDir)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected ffmpeg from env, got %q", cfg.FFmpegBinary())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero fps", func(c *config.Config) { c.Extraction.FPS = 0 }, "extraction.fps"},
		{"negative window", func(c *config.Config) { c.Extraction.WindowSeconds = -1 }, "extraction.window_seconds"},
		{"too many workers", func(c *config.Config) { c.Extraction.Workers = 1000 }, "extraction.workers"},
		{"bad policy", func(c *config.Config) { c.Extraction.AlignmentPolicy = "zip" }, "extraction.alignment_policy"},
		{"bad window failure", func(c *config.Config) { c.Extraction.WindowFailure = "retry" }, "extraction.window_failure"},
		{"bad image format", func(c *config.Config) { c.Extraction.ImageFormat = "gif" }, "extraction.image_format"},
		{"negative timeout", func(c *config.Config) { c.Tools.TimeoutSeconds = -5 }, "tools.timeout_seconds"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadRejectsInvalidLanguage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "vidchunk.toml")
	if err := os.WriteFile(configPath, []byte("[transcription]\nlanguage = \"not a tag!\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "transcription.language") {
		t.Fatalf("expected language error, got %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Extraction.FPS != 2 {
		t.Fatalf("unexpected sample fps: %v", cfg.Extraction.FPS)
	}
}

// chdir mirrors testing.T.Chdir (added in Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
